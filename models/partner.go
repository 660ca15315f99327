package models

// Partner verification states.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

// PartnerProfile is a service partner's operational record.
type PartnerProfile struct {
	UserID             string   `bson:"user_id" json:"userId"`
	FullName           string   `bson:"full_name" json:"fullName"`
	Phone              string   `bson:"phone" json:"phone"`
	Rating             float64  `bson:"rating" json:"rating"`
	TotalJobs          int      `bson:"total_jobs" json:"totalJobs"`
	VerificationStatus string   `bson:"verification_status" json:"verificationStatus"`
	Services           []string `bson:"services" json:"services"` // service categories offered
	LocationGeo        GeoPoint `bson:"location_geo" json:"locationGeo"`
	IsOnline           bool     `bson:"is_online" json:"isOnline"`
	FCMToken           string   `bson:"fcm_token,omitempty" json:"-"`
}

// PartnerCandidate is the ranking output for one partner: ephemeral,
// recomputed on every dispatch cycle, never persisted.
type PartnerCandidate struct {
	PartnerID             string   `json:"partnerId"`
	PartnerName           string   `json:"partnerName"`
	RankScore             float64  `json:"rankScore"`
	HasWorkedWithCustomer bool     `json:"workedBefore"`
	DistanceKm            *float64 `json:"distanceKm,omitempty"`
	IsOnline              bool     `json:"isOnline"`
}
