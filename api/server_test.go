package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/api"
	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/chain/memchain"
	"github.com/xraph/vesting/store/memory"
	"github.com/xraph/vesting/types"
)

const (
	owner    = "0x1000000000000000000000000000000000000001"
	treasury = "0x2000000000000000000000000000000000000002"
	token    = "0x3000000000000000000000000000000000000003"
	alice    = "0xa11ce00000000000000000000000000000000000"

	start = uint64(1_700_000_000)
)

type testServer struct {
	srv *api.Server
	now uint64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mc := memchain.New()
	mc.CreateToken(token, chain.TokenInfo{Name: "Aqua", Symbol: "AQUA", Decimals: 6}, treasury, types.NewAmount(1_000_000))

	e := vesting.New(memory.New(), mc, mc, vesting.WithContractAddress("vesting-contract"))
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = e.Stop() })

	ts := &testServer{now: start}
	srv, err := api.New(e, api.WithClock(func() uint64 { return ts.now }))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	ts.srv = srv
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, sender, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if sender != "" {
		req.Header.Set(api.SenderHeader, sender)
	}
	resp, err := ts.srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	} else {
		out["raw"] = string(raw)
	}
	return resp.StatusCode, out
}

func (ts *testServer) instantiate(t *testing.T) {
	t.Helper()
	body := `{"treasury":"` + treasury + `","token_addr":"` + token + `"}`
	if status, out := ts.do(t, http.MethodPost, "/vesting/instantiate", owner, body); status != http.StatusCreated {
		t.Fatalf("instantiate: got %d %v", status, out)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	status, out := ts.do(t, http.MethodGet, "/health", "", "")
	if status != http.StatusOK || out["status"] != "ok" {
		t.Errorf("got %d %v", status, out)
	}
}

func TestInstantiateAndConfig(t *testing.T) {
	ts := newTestServer(t)

	if status, out := ts.do(t, http.MethodGet, "/vesting/config", "", ""); status != http.StatusConflict || out["code"] != "not_initialized" {
		t.Errorf("before instantiate: got %d %v", status, out)
	}

	ts.instantiate(t)

	status, out := ts.do(t, http.MethodGet, "/vesting/config", "", "")
	if status != http.StatusOK {
		t.Fatalf("got %d %v", status, out)
	}
	if out["owner"] != owner || out["treasury"] != treasury {
		t.Errorf("got config %v", out)
	}

	body := `{"treasury":"` + treasury + `","token_addr":"` + token + `"}`
	if status, out := ts.do(t, http.MethodPost, "/vesting/instantiate", owner, body); status != http.StatusConflict {
		t.Errorf("second instantiate: got %d %v", status, out)
	}
}

func TestExecuteClaimFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.instantiate(t)

	steps := []struct {
		sender string
		body   string
	}{
		{owner, `{"set_vesting_parameters":{"params":{"soon":"10","after":"0","period":"100"}}}`},
		{owner, `{"start_release":{"start_time":1700000000}}`},
		{owner, `{"add_user_by_owner":{"wallet":"` + alice + `","amount":"1000"}}`},
	}
	for _, s := range steps {
		if status, out := ts.do(t, http.MethodPost, "/vesting/execute", s.sender, s.body); status != http.StatusOK {
			t.Fatalf("%s: got %d %v", s.body, status, out)
		}
	}

	ts.now = start + 50
	status, out := ts.do(t, http.MethodGet, "/vesting/users/"+alice+"/pending", "", "")
	if status != http.StatusOK || out["pending"] != "550" {
		t.Errorf("pending: got %d %v", status, out)
	}
	status, out = ts.do(t, http.MethodGet, "/vesting/users/"+alice+"/pending?at=1700000100", "", "")
	if status != http.StatusOK || out["pending"] != "1000" {
		t.Errorf("pending at: got %d %v", status, out)
	}

	status, out = ts.do(t, http.MethodPost, "/vesting/execute", alice, `{"claim_pending_tokens":{}}`)
	if status != http.StatusOK {
		t.Fatalf("claim: got %d %v", status, out)
	}
	if out["action"] != "Claim pending tokens" {
		t.Errorf("got action %v", out["action"])
	}
	instructions, _ := out["instructions"].([]any)
	if len(instructions) != 1 {
		t.Fatalf("got instructions %v", out["instructions"])
	}
	ins, _ := instructions[0].(map[string]any)
	if ins["kind"] != "token_transfer" {
		t.Errorf("got kind %v, want token_transfer", ins["kind"])
	}
	if body, _ := ins["instruction"].(map[string]any); body["amount"] != "550" || body["recipient"] != alice {
		t.Errorf("got instruction %v", body)
	}

	status, out = ts.do(t, http.MethodPost, "/vesting/execute", alice, `{"claim_pending_tokens":{}}`)
	if status != http.StatusUnprocessableEntity || out["code"] != "no_pending_tokens" {
		t.Errorf("repeat claim: got %d %v", status, out)
	}

	status, out = ts.do(t, http.MethodGet, "/vesting/users/"+alice, "", "")
	if status != http.StatusOK || out["released_amount"] != "550" || out["total_entitlement"] != "1000" {
		t.Errorf("user: got %d %v", status, out)
	}

	status, out = ts.do(t, http.MethodGet, "/vesting/total", "", "")
	if status != http.StatusOK || out["total"] != "1000" {
		t.Errorf("total: got %d %v", status, out)
	}
}

func TestExecuteErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.instantiate(t)

	tests := []struct {
		name       string
		sender     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"missing sender", "", `{"start_release":{"start_time":"1"}}`, http.StatusBadRequest, "invalid_input"},
		{"malformed json", owner, `{"start_release":`, http.StatusBadRequest, "invalid_input"},
		{"unknown tag", owner, `{"mint":{}}`, http.StatusBadRequest, "invalid_input"},
		{"two tags", owner, `{"start_release":{"start_time":"1"},"withdraw":{"wallet":"x"}}`, http.StatusBadRequest, "invalid_input"},
		{"negative start", owner, `{"start_release":{"start_time":-1}}`, http.StatusBadRequest, "invalid_input"},
		{"not owner", alice, `{"start_release":{"start_time":"1"}}`, http.StatusForbidden, "unauthorized"},
		{"no funds", alice, `{"add_user":{}}`, http.StatusBadRequest, "need_funds"},
		{"unsupported denom", alice, `{"add_user":{"funds":[{"denom":"uatom","amount":"5"}]}}`, http.StatusBadRequest, "not_support_token"},
		{"claim without entry", alice, `{"claim_pending_tokens":{}}`, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := ts.do(t, http.MethodPost, "/vesting/execute", tt.sender, tt.body)
			if status != tt.wantStatus {
				t.Errorf("got status %d, want %d (%v)", status, tt.wantStatus, out)
			}
			if out["code"] != tt.wantCode {
				t.Errorf("got code %v, want %s", out["code"], tt.wantCode)
			}
		})
	}
}

func TestContributionAndBalance(t *testing.T) {
	ts := newTestServer(t)
	ts.instantiate(t)

	body := `{"add_user":{"funds":[{"denom":"ujunox","amount":"1"}]}}`
	if status, out := ts.do(t, http.MethodPost, "/vesting/execute", alice, body); status != http.StatusOK {
		t.Fatalf("add_user: got %d %v", status, out)
	}

	status, out := ts.do(t, http.MethodGet, "/vesting/users/"+alice, "", "")
	if status != http.StatusOK || out["total_entitlement"] != "176" {
		t.Errorf("got %d %v", status, out)
	}

	status, out = ts.do(t, http.MethodGet, "/vesting/users?limit=10", "", "")
	if status != http.StatusOK || !strings.Contains(out["raw"].(string), alice) {
		t.Errorf("list: got %d %v", status, out)
	}
	if status, out := ts.do(t, http.MethodGet, "/vesting/users?limit=-1", "", ""); status != http.StatusBadRequest {
		t.Errorf("negative limit: got %d %v", status, out)
	}

	status, out = ts.do(t, http.MethodGet, "/vesting/balance/"+treasury, "", "")
	if status != http.StatusOK || !strings.Contains(out["raw"].(string), `"1000000"`) {
		t.Errorf("balance: got %d %v", status, out)
	}
}

func TestSchemaAndQueries(t *testing.T) {
	ts := newTestServer(t)
	ts.instantiate(t)

	status, out := ts.do(t, http.MethodGet, "/vesting/schema", "", "")
	if status != http.StatusOK || out["title"] != "ExecuteMsg" {
		t.Errorf("schema: got %d %v", status, out["title"])
	}

	status, out = ts.do(t, http.MethodGet, "/vesting/vesting_parameters", "", "")
	if status != http.StatusOK || out["immediate_fraction"] != float64(0) {
		t.Errorf("vesting parameters: got %d %v", status, out)
	}

	status, out = ts.do(t, http.MethodGet, "/vesting/price", "", "")
	prices, _ := out["prices"].(map[string]any)
	if status != http.StatusOK || prices["ujunox"] != "5280" {
		t.Errorf("price: got %d %v", status, out)
	}
}

func TestBasePath(t *testing.T) {
	e := vesting.New(memory.New(), memchain.New(), memchain.New())
	srv, err := api.New(e, api.WithBasePath("/v1/"))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/v1/total", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("got %d, want 200", resp.StatusCode)
	}
}
