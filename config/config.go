package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB    int    `mapstructure:"REDIS_CACHE_DB"`
	RedisSettingsDB int    `mapstructure:"REDIS_SETTINGS_DB"`
	RedisQueueDB    int    `mapstructure:"REDIS_QUEUE_DB"`

	// Job dispatch defaults. Runtime overrides live in the settings
	// collection (see services/settings); these are the fallbacks.
	DispatchBatchSize     int    `mapstructure:"DISPATCH_BATCH_SIZE"`
	DispatchOfferTTLSecs  int    `mapstructure:"DISPATCH_OFFER_TTL_SECS"`
	DispatchMaxBatches    int    `mapstructure:"DISPATCH_MAX_BATCHES"`
	DispatchSweepInterval string `mapstructure:"DISPATCH_SWEEP_INTERVAL"`
	DispatchRankingMode   string `mapstructure:"DISPATCH_RANKING_MODE"` // "smart" or "fullpool"

	// Firebase service account credentials file for FCM pushes.
	FirebaseCredFile string `mapstructure:"FIREBASE_CRED_FILE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_SETTINGS_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "homezy")
	viper.SetDefault("DISPATCH_BATCH_SIZE", 5)
	viper.SetDefault("DISPATCH_OFFER_TTL_SECS", 30)
	viper.SetDefault("DISPATCH_MAX_BATCHES", 3)
	viper.SetDefault("DISPATCH_SWEEP_INTERVAL", "5m")
	viper.SetDefault("DISPATCH_RANKING_MODE", "smart")
	viper.SetDefault("FIREBASE_CRED_FILE", "serviceAccountKey.json")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
