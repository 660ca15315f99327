package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"homezy/config"
	"homezy/services/dispatch"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// Task types handled by the dispatch worker.
const (
	TypeDispatchTrigger = "dispatch:trigger"
	TypeExpirySweep     = "dispatch:sweep"
)

// DispatchTriggerPayload carries the booking a trigger task works on.
type DispatchTriggerPayload struct {
	BookingID string `json:"bookingId"`
}

func redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// Enqueuer submits dispatch trigger tasks to the queue.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates the task queue producer.
func NewEnqueuer() *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(redisOpts())}
}

// EnqueueDispatchTrigger queues the partner search for a booking.
func (e *Enqueuer) EnqueueDispatchTrigger(ctx context.Context, bookingID string) error {
	payload, err := json.Marshal(DispatchTriggerPayload{BookingID: bookingID})
	if err != nil {
		return fmt.Errorf("failed to marshal trigger payload: %w", err)
	}
	task := asynq.NewTask(TypeDispatchTrigger, payload, asynq.MaxRetry(3), asynq.Timeout(time.Minute))
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue dispatch trigger: %w", err)
	}
	return nil
}

// InitDispatchWorker runs the async worker and the periodic expiry sweep in
// the background.
func InitDispatchWorker(engine dispatch.Engine) {
	opts := redisOpts()

	srv := asynq.NewServer(
		opts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDispatchTrigger, handleDispatchTrigger(engine))
	mux.HandleFunc(TypeExpirySweep, handleExpirySweep(engine))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[DispatchWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[DispatchWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[DispatchWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()

	// Periodic expiry sweep.
	go func() {
		interval := config.AppConfig.DispatchSweepInterval
		scheduler := asynq.NewScheduler(opts, nil)
		spec := "@every " + interval
		task := asynq.NewTask(TypeExpirySweep, nil, asynq.Timeout(2*time.Minute))
		if _, err := scheduler.Register(spec, task); err != nil {
			log.Fatalf("[DispatchWorker] Failed to register expiry sweep (%s): %v", spec, err)
		}
		log.Printf("[DispatchWorker] Expiry sweep scheduled every %s", interval)
		if err := scheduler.Run(); err != nil {
			log.Fatalf("[DispatchWorker] Scheduler stopped: %v", err)
		}
	}()
}

func handleDispatchTrigger(engine dispatch.Engine) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p DispatchTriggerPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[DispatchTrigger] Invalid payload: %v", err)
			return err
		}
		if err := engine.TriggerDispatch(ctx, p.BookingID); err != nil {
			log.Printf("[DispatchTrigger] Dispatch failed for booking %s: %v", p.BookingID, err)
			return err
		}
		return nil
	}
}

func handleExpirySweep(engine dispatch.Engine) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		result, err := engine.RunExpirySweep(ctx)
		if err != nil {
			log.Printf("[ExpirySweep] Sweep failed: %v", err)
			return err
		}
		if result.ExpiredOffers > 0 {
			log.Printf("[ExpirySweep] Expired %d offers, escalated %d bookings, exhausted %d",
				result.ExpiredOffers, result.BookingsEscalated, result.BookingsExhausted)
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[DispatchWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
