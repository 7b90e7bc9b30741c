package db

import (
	"context"
	"errors"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"

	"gorm.io/gorm"
)

// CountryRepository runs on a gorm session already bound to one tenant schema.
type CountryRepository struct {
	db *gorm.DB
}

func NewCountryRepository(db *gorm.DB) *CountryRepository {
	return &CountryRepository{db: db}
}

func (r *CountryRepository) List(ctx context.Context) ([]domain.Country, error) {
	if r.db == nil {
		return nil, domain.ErrDBUnavailable
	}
	var models []CountryModel
	if err := r.db.WithContext(ctx).Order("code").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Country, 0, len(models))
	for _, m := range models {
		out = append(out, toCountry(m))
	}
	return out, nil
}

func (r *CountryRepository) Get(ctx context.Context, id string) (domain.Country, error) {
	if r.db == nil {
		return domain.Country{}, domain.ErrDBUnavailable
	}
	var model CountryModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Country{}, domain.ErrNotFound
		}
		return domain.Country{}, err
	}
	return toCountry(model), nil
}

func (r *CountryRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	return r.exists(ctx, "code", code, excludeID)
}

func (r *CountryRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	return r.exists(ctx, "name", name, excludeID)
}

func (r *CountryRepository) exists(ctx context.Context, column, value, excludeID string) (bool, error) {
	if r.db == nil {
		return false, domain.ErrDBUnavailable
	}
	q := r.db.WithContext(ctx).Model(&CountryModel{}).Where(column+" = ?", value)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *CountryRepository) Create(ctx context.Context, country domain.Country) error {
	if r.db == nil {
		return domain.ErrDBUnavailable
	}
	model := fromCountry(country)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *CountryRepository) Update(ctx context.Context, country domain.Country) error {
	if r.db == nil {
		return domain.ErrDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&CountryModel{}).Where("id = ?", country.ID).Updates(map[string]any{
		"code":        country.Code,
		"name":        country.Name,
		"description": country.Description,
		"updated_at":  country.UpdatedAt,
		"updated_by":  country.UpdatedBy,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CountryRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return domain.ErrDBUnavailable
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&CountryModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toCountry(m CountryModel) domain.Country {
	return domain.Country{
		ID:          m.ID,
		Code:        m.Code,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		CreatedBy:   m.CreatedBy,
		UpdatedAt:   m.UpdatedAt,
		UpdatedBy:   m.UpdatedBy,
	}
}

func fromCountry(c domain.Country) CountryModel {
	return CountryModel{
		ID:          c.ID,
		Code:        c.Code,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		CreatedBy:   c.CreatedBy,
		UpdatedAt:   c.UpdatedAt,
		UpdatedBy:   c.UpdatedBy,
	}
}
