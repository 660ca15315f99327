package models

// Service is a bookable catalog entry.
type Service struct {
	ID        string  `bson:"id" json:"id"`
	Name      string  `bson:"name" json:"name"`
	Category  string  `bson:"category" json:"category"`
	BasePrice float64 `bson:"base_price" json:"basePrice"`
	Active    bool    `bson:"active" json:"active"`
}
