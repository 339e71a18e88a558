package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/store/memory"
	"github.com/xraph/vesting/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return memory.New()
	})
}

func TestClosed(t *testing.T) {
	s := memory.New()
	_ = s.Close()

	err := s.View(context.Background(), func(context.Context, store.Reader) error { return nil })
	if !errors.Is(err, vesting.ErrStoreClosed) {
		t.Errorf("View: got %v, want ErrStoreClosed", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, vesting.ErrStoreClosed) {
		t.Errorf("Ping: got %v, want ErrStoreClosed", err)
	}
}
