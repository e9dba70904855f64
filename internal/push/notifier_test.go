package push

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/lumiere-studio/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// in-memory Store and scripted Client
// ---------------------------------------------------------------------------

type memStore struct {
	mu      sync.Mutex
	subs    map[string]*model.PushSubscription
	listErr error
}

func newMemStore() *memStore {
	return &memStore{subs: make(map[string]*model.PushSubscription)}
}

func (s *memStore) Save(ctx context.Context, sub *model.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.subs {
		if existing.Endpoint == sub.Endpoint && id != sub.AdminID {
			delete(s.subs, id)
		}
	}
	cp := *sub
	s.subs[sub.AdminID] = &cp
	return nil
}

func (s *memStore) Delete(ctx context.Context, adminID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, adminID)
	return nil
}

func (s *memStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.subs {
		if existing.Endpoint == endpoint {
			delete(s.subs, id)
		}
	}
	return nil
}

func (s *memStore) List(ctx context.Context) ([]*model.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*model.PushSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		cp := *sub
		out = append(out, &cp)
	}
	return out, nil
}

type scriptedClient struct {
	mu       sync.Mutex
	status   map[string]int // endpoint -> status to return
	calls    map[string]int
	payloads [][]byte
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{status: make(map[string]int), calls: make(map[string]int)}
}

func (c *scriptedClient) Send(ctx context.Context, sub *model.PushSubscription, payload []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[sub.Endpoint]++
	c.payloads = append(c.payloads, payload)
	status, ok := c.status[sub.Endpoint]
	if !ok {
		status = http.StatusCreated
	}
	if status >= 300 {
		return status, &DeliveryError{Endpoint: sub.Endpoint, StatusCode: status}
	}
	return status, nil
}

func (c *scriptedClient) callsTo(endpoint string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[endpoint]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func subscription(endpoint string) model.PushSubscription {
	return model.PushSubscription{Endpoint: endpoint, Keys: model.PushKeys{P256dh: "p256", Auth: "auth"}}
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistry_Subscribe_RejectsIncomplete(t *testing.T) {
	reg := NewRegistry(newMemStore(), quietLogger())

	err := reg.Subscribe(context.Background(), "admin-1", model.PushSubscription{Endpoint: "https://push.test/1"})
	assert.ErrorIs(t, err, ErrInvalidSubscription)

	err = reg.Subscribe(context.Background(), "", subscription("https://push.test/1"))
	assert.ErrorIs(t, err, ErrInvalidSubscription)
}

func TestRegistry_SubscribeUnsubscribe(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(store, quietLogger())
	ctx := context.Background()

	require.NoError(t, reg.Subscribe(ctx, "admin-1", subscription("https://push.test/1")))
	require.NoError(t, reg.Subscribe(ctx, "admin-2", subscription("https://push.test/2")))
	assert.Equal(t, 2, reg.Len())
	assert.Len(t, store.subs, 2)

	require.NoError(t, reg.Unsubscribe(ctx, "admin-1"))
	assert.Equal(t, 1, reg.Len())
	assert.NotContains(t, store.subs, "admin-1")
}

func TestRegistry_Snapshot_SeesOtherInstances(t *testing.T) {
	store := newMemStore()
	mine := NewRegistry(store, quietLogger())
	other := NewRegistry(store, quietLogger())

	require.NoError(t, other.Subscribe(context.Background(), "admin-9", subscription("https://push.test/9")))

	subs := mine.Snapshot(context.Background())
	require.Len(t, subs, 1)
	assert.Equal(t, "admin-9", subs[0].AdminID)
}

func TestRegistry_Snapshot_FallsBackToCache(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(store, quietLogger())
	require.NoError(t, reg.Subscribe(context.Background(), "admin-1", subscription("https://push.test/1")))

	store.listErr = errors.New("connection reset")
	subs := reg.Snapshot(context.Background())

	require.Len(t, subs, 1)
	assert.Equal(t, "https://push.test/1", subs[0].Endpoint)
}

// ---------------------------------------------------------------------------
// Notifier
// ---------------------------------------------------------------------------

func TestNotifier_EmptyRegistryIsNoop(t *testing.T) {
	client := newScriptedClient()
	n := NewNotifier(NewRegistry(newMemStore(), quietLogger()), client, 4, time.Second, quietLogger())

	report := n.NotifyAdmins(context.Background(), model.PushPayload{Title: "New contact"})

	assert.Equal(t, FanoutReport{}, report)
	assert.Empty(t, client.payloads)
}

func TestNotifier_DisabledClientIsNoop(t *testing.T) {
	reg := NewRegistry(newMemStore(), quietLogger())
	require.NoError(t, reg.Subscribe(context.Background(), "admin-1", subscription("https://push.test/1")))
	n := NewNotifier(reg, nil, 4, time.Second, quietLogger())

	assert.Equal(t, FanoutReport{}, n.NotifyAdmins(context.Background(), model.PushPayload{Title: "x"}))
}

func TestNotifier_DeliversPayloadToAll(t *testing.T) {
	reg := NewRegistry(newMemStore(), quietLogger())
	ctx := context.Background()
	require.NoError(t, reg.Subscribe(ctx, "admin-1", subscription("https://push.test/1")))
	require.NoError(t, reg.Subscribe(ctx, "admin-2", subscription("https://push.test/2")))
	client := newScriptedClient()
	n := NewNotifier(reg, client, 2, time.Second, quietLogger())

	report := n.NotifyAdmins(ctx, model.PushPayload{
		Title: "Nouveau contact", Body: "Jane Doe", Type: "contact_submission",
		Data: map[string]any{"submission_id": "abc"},
	})

	assert.Equal(t, FanoutReport{Attempted: 2, Delivered: 2}, report)
	require.Len(t, client.payloads, 2)
	var decoded model.PushPayload
	require.NoError(t, json.Unmarshal(client.payloads[0], &decoded))
	assert.Equal(t, "contact_submission", decoded.Type)
	assert.Equal(t, "abc", decoded.Data["submission_id"])
}

func TestNotifier_PrunesGoneSubscriptions(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(store, quietLogger())
	ctx := context.Background()
	require.NoError(t, reg.Subscribe(ctx, "admin-1", subscription("https://push.test/alive")))
	require.NoError(t, reg.Subscribe(ctx, "admin-2", subscription("https://push.test/gone")))
	require.NoError(t, reg.Subscribe(ctx, "admin-3", subscription("https://push.test/expired")))
	client := newScriptedClient()
	client.status["https://push.test/gone"] = http.StatusGone
	client.status["https://push.test/expired"] = http.StatusNotFound
	n := NewNotifier(reg, client, 4, time.Second, quietLogger())

	report := n.NotifyAdmins(ctx, model.PushPayload{Title: "first"})
	assert.Equal(t, FanoutReport{Attempted: 3, Delivered: 1, Pruned: 2}, report)
	assert.Len(t, store.subs, 1)
	assert.Equal(t, 1, reg.Len())

	report = n.NotifyAdmins(ctx, model.PushPayload{Title: "second"})
	assert.Equal(t, FanoutReport{Attempted: 1, Delivered: 1}, report)
	assert.Equal(t, 1, client.callsTo("https://push.test/gone"))
	assert.Equal(t, 1, client.callsTo("https://push.test/expired"))
	assert.Equal(t, 2, client.callsTo("https://push.test/alive"))
}

func TestNotifier_OtherFailuresDoNotPruneOrAbort(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(store, quietLogger())
	ctx := context.Background()
	require.NoError(t, reg.Subscribe(ctx, "admin-1", subscription("https://push.test/flaky")))
	require.NoError(t, reg.Subscribe(ctx, "admin-2", subscription("https://push.test/ok")))
	client := newScriptedClient()
	client.status["https://push.test/flaky"] = http.StatusInternalServerError
	n := NewNotifier(reg, client, 1, time.Second, quietLogger())

	report := n.NotifyAdmins(ctx, model.PushPayload{Title: "x"})

	assert.Equal(t, FanoutReport{Attempted: 2, Delivered: 1, Failed: 1}, report)
	assert.Len(t, store.subs, 2)
}

func TestDeliveryError_Gone(t *testing.T) {
	assert.True(t, (&DeliveryError{StatusCode: 404}).Gone())
	assert.True(t, (&DeliveryError{StatusCode: 410}).Gone())
	assert.False(t, (&DeliveryError{StatusCode: 429}).Gone())
}
