package plugin_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xraph/vesting/id"
	"github.com/xraph/vesting/plugin"
	"github.com/xraph/vesting/types"
)

type namedPlugin struct{ name string }

func (p namedPlugin) Name() string { return p.name }

type claimPlugin struct {
	namedPlugin
	claims []string
	err    error
}

func (p *claimPlugin) OnClaim(_ context.Context, wallet string, amount types.Amount, _ id.ID) error {
	p.claims = append(p.claims, wallet+":"+amount.String())
	return p.err
}

type slowPlugin struct {
	namedPlugin
	release chan struct{}
}

func (p *slowPlugin) OnReleaseStarted(context.Context, uint64) error {
	<-p.release
	return nil
}

func TestRegister(t *testing.T) {
	r := plugin.NewRegistry()
	if err := r.Register(namedPlugin{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&claimPlugin{namedPlugin: namedPlugin{"b"}}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(namedPlugin{"a"}); err == nil {
		t.Error("duplicate registration: got nil error")
	}

	if got := r.Count(); got != 2 {
		t.Errorf("got %d plugins, want 2", got)
	}
	if p := r.Get("b"); p == nil || p.Name() != "b" {
		t.Errorf("Get(b): got %v", p)
	}
	if p := r.Get("missing"); p != nil {
		t.Errorf("Get(missing): got %v, want nil", p)
	}
	if list := r.List(); len(list) != 2 || list[0].Name() != "a" {
		t.Errorf("got list %v", list)
	}
}

func TestEmitOnlyReachesImplementers(t *testing.T) {
	r := plugin.NewRegistry()
	cp := &claimPlugin{namedPlugin: namedPlugin{"claims"}}
	_ = r.Register(namedPlugin{"quiet"})
	_ = r.Register(cp)

	r.EmitClaim(context.Background(), "alice", types.NewAmount(55), id.NewDisbursementID())
	r.EmitGrant(context.Background(), "owner", "alice", types.NewAmount(10))

	if len(cp.claims) != 1 || cp.claims[0] != "alice:55" {
		t.Errorf("got claims %v, want [alice:55]", cp.claims)
	}
}

func TestHookFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	r := plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	_ = r.Register(&claimPlugin{namedPlugin: namedPlugin{"broken"}, err: errors.New("sink down")})

	r.EmitClaim(context.Background(), "alice", types.NewAmount(1), id.NewDisbursementID())

	out := buf.String()
	if !strings.Contains(out, "plugin OnClaim failed") || !strings.Contains(out, "sink down") {
		t.Errorf("got log %q", out)
	}
}

func TestHookTimeout(t *testing.T) {
	var buf bytes.Buffer
	r := plugin.NewRegistry().
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))).
		WithTimeout(10 * time.Millisecond)
	sp := &slowPlugin{namedPlugin: namedPlugin{"slow"}, release: make(chan struct{})}
	defer close(sp.release)
	_ = r.Register(sp)

	done := make(chan struct{})
	go func() {
		r.EmitReleaseStarted(context.Background(), 1)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked past the hook timeout")
	}
	if !strings.Contains(buf.String(), "plugin timeout: slow") {
		t.Errorf("got log %q", buf.String())
	}
}
