package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/xraph/vesting/store"
	"github.com/xraph/vesting/store/mongo"
	"github.com/xraph/vesting/store/storetest"
)

// newStore connects to VESTING_TEST_MONGO_URI, which must point at a replica
// set, and uses a fresh database per test.
func newStore(t *testing.T) store.Store {
	t.Helper()
	uri := os.Getenv("VESTING_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("VESTING_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	dbName := fmt.Sprintf("vesting_test_%d", time.Now().UnixNano())
	s, err := mongo.Connect(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// The suite closes s, so the drop uses its own connection.
	t.Cleanup(func() {
		c, err := mongo.Connect(context.Background(), uri, dbName)
		if err != nil {
			return
		}
		_ = c.Database().Drop(context.Background())
		_ = c.Close()
	})
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newStore)
}
