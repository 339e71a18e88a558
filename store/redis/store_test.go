package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/store/redis"
	"github.com/xraph/vesting/store/storetest"
	"github.com/xraph/vesting/types"
)

func setup(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	s := redis.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), opts...)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s, mr
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := setup(t)
		return s
	})
}

func TestLeaseBusy(t *testing.T) {
	s, mr := setup(t, redis.WithLease(time.Second, 3, time.Millisecond))
	defer s.Close()
	if err := mr.Set("vesting:lease", "someone-else"); err != nil {
		t.Fatal(err)
	}

	err := s.Update(context.Background(), func(ctx context.Context, tx store.Tx) error {
		t.Error("transaction ran without the lease")
		return nil
	})
	if !errors.Is(err, vesting.ErrTransactionFailed) {
		t.Errorf("got %v, want ErrTransactionFailed", err)
	}
}

func TestLeaseReleased(t *testing.T) {
	s, mr := setup(t)
	defer s.Close()
	ctx := context.Background()

	err := s.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		if !mr.Exists("vesting:lease") {
			t.Error("lease not held during the transaction")
		}
		return tx.PutTotal(ctx, types.NewAmount(1))
	})
	if err != nil {
		t.Fatal(err)
	}
	if mr.Exists("vesting:lease") {
		t.Error("lease still held after commit")
	}
}

func TestConcurrentWriteConflict(t *testing.T) {
	s, mr := setup(t)
	defer s.Close()
	ctx := context.Background()

	rogue := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rogue.Close()

	err := s.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetTotal(ctx); err != nil {
			return err
		}
		// A writer that ignores the lease bumps the version mid-transaction.
		if err := rogue.Incr(ctx, "vesting:version").Err(); err != nil {
			return err
		}
		return tx.PutTotal(ctx, types.NewAmount(5))
	})
	if !errors.Is(err, vesting.ErrTransactionFailed) {
		t.Fatalf("got %v, want ErrTransactionFailed", err)
	}

	err = s.View(ctx, func(ctx context.Context, r store.Reader) error {
		total, err := r.GetTotal(ctx)
		if err != nil {
			return err
		}
		if !total.IsZero() {
			t.Errorf("conflicting write applied: total %v", total)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPrefix(t *testing.T) {
	s, mr := setup(t, redis.WithPrefix("sale42"))
	defer s.Close()

	err := s.Update(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.PutTotal(ctx, types.NewAmount(9))
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := mr.Get("sale42:total")
	if err != nil {
		t.Fatal(err)
	}
	if got != "9" {
		t.Errorf("got %q, want 9", got)
	}
}
