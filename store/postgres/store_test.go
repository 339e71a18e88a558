package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/store/postgres"
	"github.com/xraph/vesting/store/storetest"
)

// newStore connects to VESTING_TEST_POSTGRES_DSN and empties the vesting
// tables. The test is skipped when the variable is unset.
func newStore(t *testing.T) store.Store {
	t.Helper()
	dsn := os.Getenv("VESTING_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VESTING_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	s, err := postgres.Connect(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := s.Pool().Exec(ctx, `TRUNCATE vesting_state, vesting_entries`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newStore)
}
