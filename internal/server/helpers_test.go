package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/tapwars/internal/dependencies/mocks"
	"github.com/Tyrowin/tapwars/internal/model"
	"github.com/Tyrowin/tapwars/internal/storage/memory"
	"github.com/Tyrowin/tapwars/internal/testutil"
)

const testAdminToken = "s3cret-token"

var testEpoch = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

type testEnv struct {
	hub   *Hub
	store *memory.Storage
	clock *mocks.MockClock
	ctx   context.Context
}

func testConfig() Config {
	cfg := *NewConfig()
	cfg.AdminToken = testAdminToken
	cfg.AllowedOrigins = []string{testutil.TestOrigin}
	return cfg
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.SeedShop(ctx, model.DefaultCatalog()))

	clk := mocks.NewMockClock(testEpoch)
	hub := NewHub(store, cfg, clk, testutil.NopLogger())
	t.Cleanup(hub.cancel)

	return &testEnv{hub: hub, store: store, clock: clk, ctx: ctx}
}

// connect registers a pump-less client directly on the hub and discards its
// init payload.
func (e *testEnv) connect(t *testing.T) *Client {
	t.Helper()
	c := NewClient(nil, e.hub, "192.0.2.1:5000")
	e.hub.handleRegister(c)
	msgs, _ := drain(t, c)
	require.Len(t, msgs, 1)
	require.Equal(t, TypeInit, msgs[0]["type"])
	return c
}

// claim names c and discards every queued message on every client.
func (e *testEnv) claim(t *testing.T, c *Client, nickname string, others ...*Client) {
	t.Helper()
	e.hub.handleMessage(c, ClientMessage{Type: TypeSetName, Nickname: nickname, AdminToken: testAdminToken})
	msgs, _ := drain(t, c)
	result := firstOfType(msgs, TypeSetNameResult)
	require.NotNil(t, result, "no setNameResult for %q", nickname)
	require.Equal(t, true, result["ok"], "claim of %q rejected: %v", nickname, result["reason"])
	for _, other := range others {
		drain(t, other)
	}
}

func (e *testEnv) setCoins(t *testing.T, nickname string, coins int64) {
	t.Helper()
	player, err := e.store.GetPlayer(e.ctx, nickname)
	require.NoError(t, err)
	player.Coins = coins
	require.NoError(t, e.store.SavePlayer(e.ctx, player))
}

// drain returns every queued message without blocking and reports whether
// the send channel has been closed.
func drain(t *testing.T, c *Client) ([]map[string]any, bool) {
	t.Helper()

	var msgs []map[string]any
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return msgs, true
			}
			msgs = append(msgs, decode(t, data))
		default:
			return msgs, false
		}
	}
}

// waitFor blocks until c receives a message of msgType.
func waitFor(t *testing.T, c *Client, msgType string, timeout time.Duration) map[string]any {
	t.Helper()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case data, ok := <-c.send:
			require.True(t, ok, "send channel closed while waiting for %q", msgType)
			msg := decode(t, data)
			if msg["type"] == msgType {
				return msg
			}
		case <-timer.C:
			t.Fatalf("timed out waiting for %q", msgType)
			return nil
		}
	}
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func firstOfType(msgs []map[string]any, msgType string) map[string]any {
	for _, msg := range msgs {
		if msg["type"] == msgType {
			return msg
		}
	}
	return nil
}

func countOfType(msgs []map[string]any, msgType string) int {
	n := 0
	for _, msg := range msgs {
		if msg["type"] == msgType {
			n++
		}
	}
	return n
}

func types(msgs []map[string]any) []string {
	out := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, msg["type"].(string))
	}
	return out
}
