package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/xraph/vesting"
	audithook "github.com/xraph/vesting/audit_hook"
	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/chain/memchain"
	"github.com/xraph/vesting/command"
	"github.com/xraph/vesting/config"
	"github.com/xraph/vesting/store/memory"
	"github.com/xraph/vesting/types"
)

const (
	owner    = "0x1000000000000000000000000000000000000001"
	treasury = "0x2000000000000000000000000000000000000002"
	token    = "0x3000000000000000000000000000000000000003"
	alice    = "0xa11ce00000000000000000000000000000000000"
	mallory  = "0x6a11000000000000000000000000000000000000"
)

type memRecorder struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (r *memRecorder) Record(_ context.Context, evt *audithook.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *memRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

func (r *memRecorder) last() *audithook.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newEngine(t *testing.T, ext *audithook.Extension) *vesting.Engine {
	t.Helper()
	mc := memchain.New()
	mc.CreateToken(token, chain.TokenInfo{Name: "Aqua"}, treasury, types.NewAmount(1_000_000))
	e := vesting.New(memory.New(), mc, mc, vesting.WithPlugin(ext))
	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func TestExtensionRecordsLifecycle(t *testing.T) {
	rec := &memRecorder{}
	e := newEngine(t, audithook.New(rec))
	ctx := context.Background()
	admin := vesting.Env{Sender: owner, Now: 100}

	if _, err := e.Instantiate(ctx, admin, vesting.InstantiateParams{Treasury: treasury, TargetToken: token}); err != nil {
		t.Fatal(err)
	}
	steps := []command.Command{
		&command.StartRelease{StartTime: 100},
		&command.AddUserByOwner{Wallet: alice, Amount: types.NewAmount(1000)},
		&command.StartRelease{StartTime: 0},
	}
	for _, cmd := range steps {
		if _, err := e.Execute(ctx, admin, cmd); err != nil {
			t.Fatalf("%s: %v", cmd.Name(), err)
		}
	}
	if _, err := e.Execute(ctx, vesting.Env{Sender: mallory}, &command.StartRelease{StartTime: 1}); !errors.Is(err, vesting.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}

	want := []string{
		audithook.ActionInstantiated,
		audithook.ActionReleaseStarted,
		audithook.ActionGrantAdded,
		audithook.ActionReleasePaused,
		audithook.ActionCommandRejected,
	}
	got := rec.actions()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %q, want %q", i, got[i], want[i])
		}
	}

	rejected := rec.last()
	if rejected.Severity != audithook.SeverityWarning || rejected.Category != audithook.CategoryAccess {
		t.Errorf("rejection: got severity %q category %q", rejected.Severity, rejected.Category)
	}
	if rejected.Outcome != audithook.OutcomeFailure || rejected.Reason == "" {
		t.Errorf("rejection: got outcome %q reason %q", rejected.Outcome, rejected.Reason)
	}
	if rejected.Metadata["sender"] != mallory {
		t.Errorf("rejection sender: got %v", rejected.Metadata["sender"])
	}
}

func TestOwnershipChangeIsCritical(t *testing.T) {
	rec := &memRecorder{}
	ext := audithook.New(rec)

	oldCfg := &config.Config{Owner: owner}
	newCfg := &config.Config{Owner: alice}
	if err := ext.OnConfigChanged(context.Background(), oldCfg, newCfg); err != nil {
		t.Fatal(err)
	}
	evt := rec.last()
	if evt.Severity != audithook.SeverityCritical {
		t.Errorf("got severity %q, want critical", evt.Severity)
	}
	if evt.Metadata["previous_owner"] != owner {
		t.Errorf("got previous_owner %v", evt.Metadata["previous_owner"])
	}
}

func TestActionFilters(t *testing.T) {
	tests := []struct {
		name string
		opt  audithook.Option
		want int
	}{
		{"all", nil, 2},
		{"enabled", audithook.WithEnabledActions(audithook.ActionGrantAdded), 1},
		{"disabled", audithook.WithDisabledActions(audithook.ActionGrantAdded, audithook.ActionTokensClaimed), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memRecorder{}
			var opts []audithook.Option
			if tt.opt != nil {
				opts = append(opts, tt.opt)
			}
			ext := audithook.New(rec, opts...)
			ctx := context.Background()
			_ = ext.OnGrant(ctx, owner, alice, types.NewAmount(1))
			_ = ext.OnClaim(ctx, alice, types.NewAmount(1), vesting.ID{})
			if got := len(rec.actions()); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))
	if err := ext.OnWithdraw(context.Background(), alice, types.Coins{types.NewCoin(1, "ujunox")}); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}
