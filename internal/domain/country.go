package domain

import (
	"context"
	"time"
)

type Country struct {
	ID          string
	Code        string
	Name        string
	Description string
	CreatedAt   time.Time
	CreatedBy   string
	UpdatedAt   *time.Time
	UpdatedBy   string
}

type CountryInput struct {
	Code        string
	Name        string
	Description string
}

type CountryRepository interface {
	List(ctx context.Context) ([]Country, error)
	Get(ctx context.Context, id string) (Country, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Create(ctx context.Context, country Country) error
	Update(ctx context.Context, country Country) error
	Delete(ctx context.Context, id string) error
}
