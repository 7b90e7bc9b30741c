package tenancy

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestSetGetClear(t *testing.T) {
	cell := New()
	_, ok := cell.Get()
	require.False(t, ok)

	cell.Set("acme")
	cell.Set("globex")
	id, ok := cell.Get()
	require.True(t, ok)
	require.Equal(t, domain.TenantID("globex"), id)

	cell.Clear()
	cell.Clear()
	_, ok = cell.Get()
	require.False(t, ok)
}

func TestRequireTenant(t *testing.T) {
	_, err := RequireTenant(context.Background())
	require.ErrorIs(t, err, domain.ErrTenantNotResolved)

	ctx, release := Scope(context.Background())
	_, err = RequireTenant(ctx)
	require.ErrorIs(t, err, domain.ErrTenantNotResolved, "empty cell")
	FromContext(ctx).Set("acme")
	id, err := RequireTenant(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.TenantID("acme"), id)

	release()
	_, ok := TenantFrom(ctx)
	require.False(t, ok)
}

func TestCurrentFallsBackOutsideRequest(t *testing.T) {
	id, err := Current(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultTenant, id)

	id, err = Current(context.Background(), "bootstrap")
	require.NoError(t, err)
	require.Equal(t, domain.TenantID("bootstrap"), id)

	ctx, release := Scope(context.Background())
	defer release()
	_, err = Current(ctx, "")
	require.ErrorIs(t, err, domain.ErrTenantNotResolved)
}

func TestReleaseRunsOnPanic(t *testing.T) {
	ctx, release := Scope(context.Background())
	func() {
		defer func() { _ = recover() }()
		defer release()
		FromContext(ctx).Set("acme")
		panic("boom")
	}()
	_, ok := TenantFrom(ctx)
	require.False(t, ok)
}

func TestScopesAreIsolated(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, release := Scope(context.Background())
			defer release()
			want := domain.TenantID(fmt.Sprintf("tenant%d", i))
			FromContext(ctx).Set(want)
			for j := 0; j < 100; j++ {
				got, ok := TenantFrom(ctx)
				if !ok || got != want {
					t.Errorf("scope %d observed %q", i, got)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
