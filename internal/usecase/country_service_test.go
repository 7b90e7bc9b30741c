package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"

	"github.com/stretchr/testify/require"
)

type memCountryRepo struct {
	rows map[string]domain.Country
}

func (r *memCountryRepo) List(ctx context.Context) ([]domain.Country, error) {
	out := make([]domain.Country, 0, len(r.rows))
	for _, c := range r.rows {
		out = append(out, c)
	}
	return out, nil
}

func (r *memCountryRepo) Get(ctx context.Context, id string) (domain.Country, error) {
	c, ok := r.rows[id]
	if !ok {
		return domain.Country{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *memCountryRepo) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	for id, c := range r.rows {
		if c.Code == code && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memCountryRepo) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	for id, c := range r.rows {
		if c.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memCountryRepo) Create(ctx context.Context, c domain.Country) error {
	r.rows[c.ID] = c
	return nil
}

func (r *memCountryRepo) Update(ctx context.Context, c domain.Country) error {
	if _, ok := r.rows[c.ID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[c.ID] = c
	return nil
}

func (r *memCountryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type stubScope struct {
	repo  *memCountryRepo
	calls int
	err   error
}

func (s *stubScope) Countries(ctx context.Context, fn func(ctx context.Context, repo domain.CountryRepository) error) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	return fn(ctx, s.repo)
}

const (
	idMA = "00000000-0000-4000-8000-000000000001"
	idFR = "00000000-0000-4000-8000-000000000002"
)

// newService hands out sequential ids, so the n-th stored country gets
// 00000000-0000-4000-8000-00000000000n.
func newService() (*CountryService, *stubScope) {
	scope := &stubScope{repo: &memCountryRepo{rows: map[string]domain.Country{}}}
	svc := NewCountryService(scope)
	svc.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	next := 0
	svc.NewID = func() string {
		next++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", next)
	}
	return svc, scope
}

func TestCountryService_CreateAndConflict(t *testing.T) {
	svc, scope := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CountryInput{Code: " ma ", Name: "Maroc"}, "alice")
	require.NoError(t, err)
	require.Equal(t, idMA, created.ID)
	require.Equal(t, "MA", created.Code)
	require.Equal(t, "alice", created.CreatedBy)

	_, err = svc.Create(ctx, domain.CountryInput{Code: "MA", Name: "Other"}, "alice")
	require.ErrorIs(t, err, domain.ErrConflict)
	_, err = svc.Create(ctx, domain.CountryInput{Code: "FR", Name: "Maroc"}, "alice")
	require.ErrorIs(t, err, domain.ErrConflict)
	_, err = svc.Create(ctx, domain.CountryInput{Code: "DZ", Name: "Maroc"}, "alice")
	require.ErrorIs(t, err, domain.ErrConflict)
	require.Len(t, scope.repo.rows, 1)

	// Rejected creates do not consume ids.
	next, err := svc.Create(ctx, domain.CountryInput{Code: "FR", Name: "France"}, "alice")
	require.NoError(t, err)
	require.Equal(t, idFR, next.ID)
}

func TestCountryService_CreateValidation(t *testing.T) {
	svc, scope := newService()
	_, err := svc.Create(context.Background(), domain.CountryInput{Code: "", Name: ""}, "alice")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	require.ErrorContains(t, err, "code is required")
	require.ErrorContains(t, err, "name is required")

	long := make([]byte, 31)
	for i := range long {
		long[i] = 'x'
	}
	_, err = svc.Create(context.Background(), domain.CountryInput{Code: string(long), Name: "Long"}, "alice")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	require.Zero(t, scope.calls, "validation failures must not reach storage")
}

func TestCountryService_Update(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, domain.CountryInput{Code: "MA", Name: "Maroc"}, "alice")
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CountryInput{Code: "FR", Name: "France"}, "alice")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, idMA, domain.CountryInput{Code: "MA", Name: "Morocco"}, "bob")
	require.NoError(t, err)
	require.Equal(t, "Morocco", updated.Name)
	require.Equal(t, "bob", updated.UpdatedBy)
	require.NotNil(t, updated.UpdatedAt)

	_, err = svc.Update(ctx, idMA, domain.CountryInput{Code: "FR", Name: "Morocco"}, "bob")
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Update(ctx, "4a1f6c3e-0000-4000-8000-000000000000", domain.CountryInput{Code: "XX", Name: "Nowhere"}, "bob")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCountryService_GetDelete(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	_, err := svc.Create(ctx, domain.CountryInput{Code: "MA", Name: "Maroc"}, "alice")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "not-a-uuid")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	require.NoError(t, svc.Delete(ctx, idMA))
	_, err = svc.Get(ctx, idMA)
	require.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCountryService_ScopeErrorsPropagate(t *testing.T) {
	svc, scope := newService()
	scope.err = domain.ErrTenantNotResolved
	_, err := svc.List(context.Background())
	require.ErrorIs(t, err, domain.ErrTenantNotResolved)
}
