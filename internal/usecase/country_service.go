package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"

	"github.com/google/uuid"
)

// CountryScope runs fn against the countries of the caller's tenant.
type CountryScope interface {
	Countries(ctx context.Context, fn func(ctx context.Context, repo domain.CountryRepository) error) error
}

type CountryService struct {
	Scope CountryScope
	Now   func() time.Time
	NewID func() string
}

func NewCountryService(scope CountryScope) *CountryService {
	return &CountryService{
		Scope: scope,
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

func (s *CountryService) List(ctx context.Context) ([]domain.Country, error) {
	var out []domain.Country
	err := s.Scope.Countries(ctx, func(ctx context.Context, repo domain.CountryRepository) error {
		var err error
		out, err = repo.List(ctx)
		return err
	})
	return out, err
}

func (s *CountryService) Get(ctx context.Context, id string) (domain.Country, error) {
	if err := validateID(id); err != nil {
		return domain.Country{}, err
	}
	var out domain.Country
	err := s.Scope.Countries(ctx, func(ctx context.Context, repo domain.CountryRepository) error {
		var err error
		out, err = repo.Get(ctx, id)
		return err
	})
	return out, err
}

func (s *CountryService) Create(ctx context.Context, input domain.CountryInput, actor string) (domain.Country, error) {
	input = normalizeCountryInput(input)
	if err := validateCountryInput(input); err != nil {
		return domain.Country{}, err
	}
	var country domain.Country
	err := s.Scope.Countries(ctx, func(ctx context.Context, repo domain.CountryRepository) error {
		if err := ensureUnique(ctx, repo, input.Code, input.Name, ""); err != nil {
			return err
		}
		country = domain.Country{
			ID:          s.NewID(),
			Code:        input.Code,
			Name:        input.Name,
			Description: input.Description,
			CreatedAt:   s.Now().UTC(),
			CreatedBy:   actor,
		}
		return repo.Create(ctx, country)
	})
	if err != nil {
		return domain.Country{}, err
	}
	return country, nil
}

func (s *CountryService) Update(ctx context.Context, id string, input domain.CountryInput, actor string) (domain.Country, error) {
	if err := validateID(id); err != nil {
		return domain.Country{}, err
	}
	input = normalizeCountryInput(input)
	if err := validateCountryInput(input); err != nil {
		return domain.Country{}, err
	}
	var out domain.Country
	err := s.Scope.Countries(ctx, func(ctx context.Context, repo domain.CountryRepository) error {
		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		code, name := input.Code, input.Name
		if code == current.Code {
			code = ""
		}
		if name == current.Name {
			name = ""
		}
		if err := ensureUnique(ctx, repo, code, name, id); err != nil {
			return err
		}
		now := s.Now().UTC()
		current.Code = input.Code
		current.Name = input.Name
		current.Description = input.Description
		current.UpdatedAt = &now
		current.UpdatedBy = actor
		if err := repo.Update(ctx, current); err != nil {
			return err
		}
		out = current
		return nil
	})
	return out, err
}

func (s *CountryService) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return s.Scope.Countries(ctx, func(ctx context.Context, repo domain.CountryRepository) error {
		return repo.Delete(ctx, id)
	})
}

func ensureUnique(ctx context.Context, repo domain.CountryRepository, code, name, excludeID string) error {
	if code != "" {
		taken, err := repo.ExistsByCode(ctx, code, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: country code %q already exists", domain.ErrConflict, code)
		}
	}
	if name != "" {
		taken, err := repo.ExistsByName(ctx, name, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: country name %q already exists", domain.ErrConflict, name)
		}
	}
	return nil
}

func normalizeCountryInput(input domain.CountryInput) domain.CountryInput {
	return domain.CountryInput{
		Code:        strings.ToUpper(strings.TrimSpace(input.Code)),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
	}
}

func validateCountryInput(input domain.CountryInput) error {
	var errs []error
	switch {
	case input.Code == "":
		errs = append(errs, errors.New("code is required"))
	case len(input.Code) > 30:
		errs = append(errs, errors.New("code must be at most 30 characters"))
	}
	switch {
	case input.Name == "":
		errs = append(errs, errors.New("name is required"))
	case len(input.Name) > 100:
		errs = append(errs, errors.New("name must be at most 100 characters"))
	}
	if len(input.Description) > 500 {
		errs = append(errs, errors.New("description must be at most 500 characters"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, errors.Join(errs...))
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: id must be a uuid", domain.ErrInvalidArgument)
	}
	return nil
}
