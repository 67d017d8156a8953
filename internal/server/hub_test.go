package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/tapwars/internal/model"
)

func TestRegisterSendsInit(t *testing.T) {
	e := newTestEnv(t)
	older := e.clock.Now()
	require.NoError(t, e.store.AppendChat(e.ctx, model.ChatMessage{Nickname: "alice", Text: "first", SentAt: older}))
	require.NoError(t, e.store.AppendChat(e.ctx, model.ChatMessage{Nickname: "bob", Text: "second", SentAt: older.Add(time.Second)}))
	_, err := e.store.EnsurePlayer(e.ctx, "alice")
	require.NoError(t, err)

	c := NewClient(nil, e.hub, "192.0.2.1:5000")
	e.hub.handleRegister(c)

	msgs, _ := drain(t, c)
	require.Equal(t, []string{TypeInit}, types(msgs))
	initMsg := msgs[0]

	shop := initMsg["shop"].([]any)
	require.Len(t, shop, len(model.DefaultCatalog()))
	first := shop[0].(map[string]any)
	assert.Equal(t, "cheapUp", first["id"])
	assert.EqualValues(t, 10, first["price"])
	assert.Equal(t, "tap", first["kind"])

	ranks := initMsg["ranks"].([]any)
	require.Len(t, ranks, 1)
	assert.Equal(t, "alice", ranks[0].(map[string]any)["nickname"])

	chats := initMsg["chats"].([]any)
	require.Len(t, chats, 2)
	assert.Equal(t, "first", chats[0].(map[string]any)["text"])
	assert.Equal(t, "second", chats[1].(map[string]any)["text"])
	assert.NotContains(t, chats[0], "type")
	assert.EqualValues(t, older.UnixMilli(), chats[0].(map[string]any)["ts"])
}

func TestInitOnEmptyStoreUsesEmptyLists(t *testing.T) {
	e := newTestEnv(t)
	c := NewClient(nil, e.hub, "192.0.2.1:5000")
	e.hub.handleRegister(c)

	msgs, _ := drain(t, c)
	require.Len(t, msgs, 1)
	assert.Equal(t, []any{}, msgs[0]["ranks"])
	assert.Equal(t, []any{}, msgs[0]["chats"])
}

func TestUnregisterReleasesAndBroadcasts(t *testing.T) {
	e := newTestEnv(t)
	c := e.connect(t)
	watcher := e.connect(t)
	e.claim(t, c, "alice", watcher)

	e.hub.handleUnregister(c)

	assert.False(t, e.hub.registry.IsInUse("alice"))
	assert.Equal(t, 1, e.hub.ClientCount())

	_, closed := drain(t, c)
	assert.True(t, closed)

	msgs, _ := drain(t, watcher)
	assert.Equal(t, []string{TypeRanks}, types(msgs))
}

func TestUnregisterOfUnknownClientIsNoop(t *testing.T) {
	e := newTestEnv(t)
	watcher := e.connect(t)
	stranger := NewClient(nil, e.hub, "192.0.2.9:1")

	e.hub.handleUnregister(stranger)

	msgs, _ := drain(t, watcher)
	assert.Empty(t, msgs)
}

func TestBroadcastDropsClientWithFullBuffer(t *testing.T) {
	cfg := testConfig()
	cfg.SendBufferSize = 2
	e := newTestEnvWithConfig(t, cfg)

	slow := e.connect(t)
	fast := e.connect(t)
	e.claim(t, fast, "alice", slow)

	// Only the fast client is drained between taps, so the slow one overflows.
	for i := 0; i < 3; i++ {
		e.hub.handleMessage(fast, ClientMessage{Type: TypeTap})
		drain(t, fast)
	}

	assert.Equal(t, 1, e.hub.ClientCount())
	msgs, closed := drain(t, slow)
	assert.Len(t, msgs, 2)
	assert.True(t, closed)
}

func TestUnicastToClosedClientIsNoop(t *testing.T) {
	e := newTestEnv(t)
	c := e.connect(t)
	e.hub.handleUnregister(c)

	require.NotPanics(t, func() {
		e.hub.unicast(c, SystemNotice{Type: TypeSystem, Text: "late"})
	})
}

func TestRegisterAfterShutdownFails(t *testing.T) {
	e := newTestEnv(t)
	go e.hub.Run()
	require.NoError(t, e.hub.Shutdown(time.Second))

	err := e.hub.Register(NewClient(nil, e.hub, "192.0.2.1:5000"))
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.False(t, e.hub.submit(nil, ClientMessage{Type: TypeTap}))
}

func TestSetIconRunsOnHub(t *testing.T) {
	e := newTestEnv(t)
	go e.hub.Run()
	t.Cleanup(func() { _ = e.hub.Shutdown(time.Second) })

	watcher := NewClient(nil, e.hub, "192.0.2.1:5000")
	require.NoError(t, e.hub.Register(watcher))
	waitFor(t, watcher, TypeInit, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.hub.SetIcon(ctx, "zoe", "/icons/z.png"))

	ranks := waitFor(t, watcher, TypeRanks, time.Second)
	players := ranks["players"].([]any)
	require.Len(t, players, 1)
	assert.Equal(t, "/icons/z.png", players[0].(map[string]any)["icon"])

	require.NoError(t, e.store.UpsertBan(e.ctx, model.Ban{Nickname: "mallory", Reason: "x"}))
	assert.ErrorIs(t, e.hub.SetIcon(ctx, "mallory", "/icons/m.png"), ErrNicknameBanned)

	_, err := e.store.GetPlayer(e.ctx, "mallory")
	assert.ErrorIs(t, err, model.ErrPlayerNotFound)
}

func TestDoWaitsForAcceptedCall(t *testing.T) {
	e := newTestEnv(t)
	go e.hub.Run()
	t.Cleanup(func() { _ = e.hub.Shutdown(time.Second) })

	ctx, cancel := context.WithCancel(context.Background())
	ran := false
	err := e.hub.do(ctx, func() {
		cancel()
		time.Sleep(50 * time.Millisecond)
		ran = true
	})

	require.NoError(t, err, "a call the hub accepted must report success")
	assert.True(t, ran)
}

func TestDoWithCanceledContextNeverRuns(t *testing.T) {
	e := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	err := e.hub.do(ctx, func() { ran = true })

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestShutdownClosesHub(t *testing.T) {
	e := newTestEnv(t)
	go e.hub.Run()

	require.NoError(t, e.hub.Shutdown(time.Second))

	select {
	case <-e.hub.done:
	default:
		t.Fatal("hub loop still running after shutdown")
	}
}
