package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/store/sqlite"
	"github.com/xraph/vesting/store/storetest"
	"github.com/xraph/vesting/types"
)

func open(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return open(t, filepath.Join(t.TempDir(), "vesting.db"))
	})
}

func TestMigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vesting.db")
	s := open(t, path)
	ctx := context.Background()

	err := s.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutTotal(ctx, types.NewAmount(77))
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := open(t, path)
	defer reopened.Close()
	err = reopened.View(ctx, func(ctx context.Context, r store.Reader) error {
		total, err := r.GetTotal(ctx)
		if err != nil {
			return err
		}
		if total.String() != "77" {
			t.Errorf("got %v, want 77", total)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestClosed(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "vesting.db"))
	_ = s.Close()
	err := s.View(context.Background(), func(context.Context, store.Reader) error { return nil })
	if !errors.Is(err, vesting.ErrStoreClosed) {
		t.Errorf("got %v, want ErrStoreClosed", err)
	}
}
