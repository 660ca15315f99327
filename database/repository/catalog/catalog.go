package catalogRepo

import (
	"context"
	"errors"

	"homezy/models"
)

// ErrServiceNotFound is returned when no catalog entry matches the given ID.
var ErrServiceNotFound = errors.New("service not found")

// ServiceCatalog defines read access to the bookable services catalog.
type ServiceCatalog interface {
	GetByID(ctx context.Context, id string) (*models.Service, error)
	ListActive(ctx context.Context, category string) ([]models.Service, error)
}
