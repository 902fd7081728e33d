package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go-digital-inventory/internal/model"
	"go-digital-inventory/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedUnits runs hook once, around the first Create, and delegates
// everything else.
type gatedUnits struct {
	repository.UnitRepository
	once sync.Once
	// afterStore selects whether hook runs after the unit is stored or
	// before it.
	afterStore bool
	hook       func()
}

func (g *gatedUnits) Create(ctx context.Context, unit *model.Unit) error {
	first := false
	g.once.Do(func() { first = true })
	if first && !g.afterStore {
		g.hook()
	}
	if err := g.UnitRepository.Create(ctx, unit); err != nil {
		return err
	}
	if first && g.afterStore {
		g.hook()
	}
	return nil
}

func newGatedEnv(t *testing.T, afterStore bool) (*testEnv, *gatedUnits) {
	t.Helper()
	base, _ := repository.NewTestStore(t)
	gated := &gatedUnits{UnitRepository: base.Units, afterStore: afterStore, hook: func() {}}
	store := *base
	store.Units = gated
	return newEnvWithStore(t, &store), gated
}

func (e *testEnv) availableUnits(t *testing.T, itemID uint) int {
	t.Helper()
	listing, err := e.units.ListUnits(context.Background(), UnitQuery{ItemID: &itemID, Status: model.StatusAvailable})
	require.NoError(t, err)
	return len(listing.PremiumAccounts) + len(listing.VoucherCodes)
}

func TestReconcileAfterInterleavedUnitEvents(t *testing.T) {
	env, gated := newGatedEnv(t, true)
	item := env.createItem(t, model.KindAccount, 0, 1000, 1500)

	// The first add stores its unit and then waits while a second add runs
	// to completion. Its own recount must not undo the second one.
	stored := make(chan struct{})
	release := make(chan struct{})
	gated.hook = func() {
		close(stored)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := env.units.AddUnit(context.Background(), &AddUnitRequest{
			ItemID: item.ID, Tipe: "akun", Username: "first@example.com", Password: "secret",
		}, "staff")
		done <- err
	}()

	<-stored
	addAccount(t, env, item.ID, "second@example.com")
	assert.Equal(t, 2, env.stockOf(t, item.ID))

	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, 2, env.availableUnits(t, item.ID))
	assert.Equal(t, env.availableUnits(t, item.ID), env.stockOf(t, item.ID))
}

func TestConcurrentUnitEventsConverge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	item := env.createItem(t, model.KindAccount, 0, 1000, 1500)
	seeded := make([]*model.Unit, 4)
	for i := range seeded {
		seeded[i] = addAccount(t, env, item.ID, fmt.Sprintf("seed%d@example.com", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 12)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.units.AddUnit(ctx, &AddUnitRequest{
				ItemID: item.ID, Tipe: "akun", Username: fmt.Sprintf("user%d@example.com", i), Password: "secret",
			}, "staff")
			errs <- err
		}(i)
	}
	for _, unit := range seeded {
		wg.Add(1)
		go func(unit *model.Unit) {
			defer wg.Done()
			_, err := env.units.UpdateUnitStatus(ctx, &UpdateUnitStatusRequest{
				ID: unit.ID, Tipe: "akun", Status: model.StatusSold,
			}, "staff")
			errs <- err
		}(unit)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 8, env.availableUnits(t, item.ID))
	assert.Equal(t, 8, env.stockOf(t, item.ID))
}

func TestAddUnitRacingItemDeletion(t *testing.T) {
	for _, tc := range []struct {
		name       string
		afterStore bool
	}{
		{name: "item deleted before the unit is stored", afterStore: false},
		{name: "item deleted after the unit is stored", afterStore: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			env, gated := newGatedEnv(t, tc.afterStore)
			item := env.createItem(t, model.KindAccount, 0, 1000, 1500)
			gated.hook = func() {
				_, err := env.inventory.DeleteItem(ctx, item.ID, "admin")
				require.NoError(t, err)
			}

			_, err := env.units.AddUnit(ctx, &AddUnitRequest{
				ItemID: item.ID, Tipe: "akun", Username: "late@example.com", Password: "secret",
			}, "staff")
			assert.ErrorIs(t, err, ErrNotFound)

			listing, err := env.units.ListUnits(ctx, UnitQuery{Status: StatusAll})
			require.NoError(t, err)
			assert.Empty(t, listing.PremiumAccounts)
			assert.Empty(t, listing.VoucherCodes)

			exists, err := env.store.Units.Exists(ctx, model.KindAccount, item.Platform, "late@example.com")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}
