package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"concierge/internal/capability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTransport is a scriptable Transport for catalog tests.
type fakeTransport struct {
	mu        sync.Mutex
	listCalls int
	listDescs []Descriptor
	listErr   error
	callFn    func(name string, params map[string]any) (*CallResult, error)
}

func (f *fakeTransport) ListTools(ctx context.Context) ([]Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listDescs, nil
}

func (f *fakeTransport) CallTool(ctx context.Context, name string, params map[string]any) (*CallResult, error) {
	if f.callFn != nil {
		return f.callFn(name, params)
	}
	return &CallResult{Success: true}, nil
}

func (f *fakeTransport) Ping(ctx context.Context) error { return nil }

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func TestCatalogCachesWithinTTL(t *testing.T) {
	ft := &fakeTransport{listDescs: []Descriptor{
		{Name: "crm_lookup", Description: "Look up a customer record", Category: "records"},
	}}
	now := time.Unix(1000, 0)
	c := NewCatalog(ft, 30*time.Second, nil)
	c.clock = func() time.Time { return now }

	ctx := context.Background()
	first := c.Descriptors(ctx)
	require.Len(t, first, 1)
	assert.Equal(t, "crm_lookup", first[0].Name)
	assert.Equal(t, capability.OriginRemote, first[0].Origin)

	// Second listing within the TTL must not touch the transport and
	// must return the identical set.
	now = now.Add(10 * time.Second)
	second := c.Descriptors(ctx)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, ft.calls())

	// Past the TTL a refresh happens.
	now = now.Add(30 * time.Second)
	c.Descriptors(ctx)
	assert.Equal(t, 2, ft.calls())
}

func TestCatalogDegradesToCachedOnFailure(t *testing.T) {
	ft := &fakeTransport{listDescs: []Descriptor{{Name: "crm_lookup"}}}
	now := time.Unix(1000, 0)
	c := NewCatalog(ft, time.Second, nil)
	c.clock = func() time.Time { return now }

	ctx := context.Background()
	require.Len(t, c.Descriptors(ctx), 1)

	// Transport goes down; the stale snapshot keeps serving.
	ft.mu.Lock()
	ft.listErr = errors.New("connection refused")
	ft.mu.Unlock()
	now = now.Add(5 * time.Second)

	descs := c.Descriptors(ctx)
	require.Len(t, descs, 1)
	assert.Equal(t, "crm_lookup", descs[0].Name)
}

func TestCatalogEmptyWhenNeverReachable(t *testing.T) {
	ft := &fakeTransport{listErr: errors.New("no route to host")}
	c := NewCatalog(ft, time.Second, nil)

	assert.Empty(t, c.Descriptors(context.Background()))
}

func TestCatalogConcurrentRefreshCollapses(t *testing.T) {
	ft := &fakeTransport{listDescs: []Descriptor{{Name: "a"}}}
	c := NewCatalog(ft, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Descriptors(context.Background())
		}()
	}
	wg.Wait()

	// singleflight may admit a small number of refreshes across the
	// initial race, but nothing near one per goroutine.
	assert.LessOrEqual(t, ft.calls(), 3)
}

func TestCatalogInvokeMapsResults(t *testing.T) {
	var recorded atomic.Int64
	ft := &fakeTransport{
		callFn: func(name string, params map[string]any) (*CallResult, error) {
			recorded.Add(1)
			switch name {
			case "ok_json":
				return &CallResult{Success: true, Output: json.RawMessage(`{"id":42}`), LatencyMs: 12}, nil
			case "ok_text":
				return &CallResult{Success: true, Message: "done"}, nil
			case "fails":
				return &CallResult{Success: false, Error: "record not found"}, nil
			default:
				return nil, errors.New("transport down")
			}
		},
	}
	c := NewCatalog(ft, time.Minute, nil)
	ctx := context.Background()

	res := c.Invoke(ctx, "ok_json", nil)
	require.True(t, res.Success)
	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(42), data["id"])

	res = c.Invoke(ctx, "ok_text", nil)
	assert.True(t, res.Success)
	assert.Equal(t, "done", res.Message)

	res = c.Invoke(ctx, "fails", nil)
	require.False(t, res.Success)
	assert.Equal(t, "record not found", res.Error)

	res = c.Invoke(ctx, "unreachable", nil)
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "remote call to unreachable failed")
}

func TestCatalogParsesInputSchemas(t *testing.T) {
	ft := &fakeTransport{listDescs: []Descriptor{
		{
			Name:        "crm_update",
			Category:    "records",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
		},
		{Name: "no_schema"},
		{Name: "bad_schema", InputSchema: json.RawMessage(`{not json`)},
	}}
	c := NewCatalog(ft, time.Minute, nil)

	descs := c.Descriptors(context.Background())
	require.Len(t, descs, 3)

	byName := map[string]capability.Descriptor{}
	for _, d := range descs {
		byName[d.Name] = d
	}

	assert.Equal(t, []string{"id"}, byName["crm_update"].Schema.Required)
	assert.Equal(t, capability.CategoryGeneral, byName["no_schema"].Category)
	assert.Empty(t, byName["bad_schema"].Schema.Properties)
}
