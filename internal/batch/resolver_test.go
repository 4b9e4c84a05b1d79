package batch

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/leads-cli/internal/aicache"
	"github.com/sells-group/leads-cli/internal/i18n"
	"github.com/sells-group/leads-cli/pkg/gemini"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]json.RawMessage)}
}

func (s *memStore) Get(_ context.Context, key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (s *memStore) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return nil
}

func (s *memStore) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *memStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *memStore) Close() error { return nil }

type fakeClient struct {
	mu    sync.Mutex
	calls []string
	fn    func(prompt, model string) (map[string]json.RawMessage, error)

	inFlight    int
	maxInFlight int
}

func (f *fakeClient) Call(_ context.Context, prompt, model string) (map[string]json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	// Give parallel chunks in the same wave time to overlap.
	time.Sleep(10 * time.Millisecond)

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	return f.fn(prompt, model)
}

type fakeLimiter struct {
	mu    sync.Mutex
	slots int
	err   error
}

func (f *fakeLimiter) AcquireSlot(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots++
	return f.err
}

// chunkFromPrompt recovers the JSON-encoded item list the resolver
// substituted into the domain prompt template.
func chunkFromPrompt(t *testing.T, prompt string) []string {
	t.Helper()
	for _, line := range strings.Split(prompt, "\n") {
		if rest, ok := strings.CutPrefix(line, "List: "); ok {
			var items []string
			require.NoError(t, json.Unmarshal([]byte(rest), &items))
			return items
		}
	}
	t.Fatalf("no item list in prompt: %s", prompt)
	return nil
}

func answerAll(t *testing.T) func(prompt, model string) (map[string]json.RawMessage, error) {
	return func(prompt, _ string) (map[string]json.RawMessage, error) {
		out := make(map[string]json.RawMessage)
		for _, item := range chunkFromPrompt(t, prompt) {
			out[item] = json.RawMessage(`"` + item + `.com"`)
		}
		return out, nil
	}
}

func newTestResolver(t *testing.T, client gemini.Client, limiter Limiter) (*Resolver, *aicache.Cache) {
	t.Helper()
	catalog, err := i18n.New("en")
	require.NoError(t, err)
	cache := aicache.New(newMemStore())
	r := NewResolver(client, limiter, cache, catalog, zap.NewNop())
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r, cache
}

func TestResolveEmptyInput(t *testing.T) {
	client := &fakeClient{fn: answerAll(t)}
	limiter := &fakeLimiter{}
	r, _ := newTestResolver(t, client, limiter)

	res, err := r.Resolve(context.Background(), Domains, nil, gemini.ModelFlash)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Empty(t, client.calls)
}

func TestResolveDeduplicatesAndSkipsBlanks(t *testing.T) {
	client := &fakeClient{fn: answerAll(t)}
	r, _ := newTestResolver(t, client, &fakeLimiter{})

	res, err := r.Resolve(context.Background(), Domains, []string{"acme", "", "acme", "globex"}, gemini.ModelFlash)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	require.Len(t, client.calls, 1)
	assert.ElementsMatch(t, []string{"acme", "globex"}, chunkFromPrompt(t, client.calls[0]))
}

func TestResolveServesCachedWithoutAPICalls(t *testing.T) {
	client := &fakeClient{fn: answerAll(t)}
	limiter := &fakeLimiter{}
	r, cache := newTestResolver(t, client, limiter)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, []string{"acme"}, map[string]json.RawMessage{
		"acme": json.RawMessage(`"cached.com"`),
	}, aicache.NamespaceDomains))

	res, err := r.Resolve(ctx, Domains, []string{"acme"}, gemini.ModelFlash)
	require.NoError(t, err)
	assert.JSONEq(t, `"cached.com"`, string(res["acme"]))
	assert.Empty(t, client.calls)
	assert.Zero(t, limiter.slots)
}

func TestResolveOnlyMissingItemsGoToAPI(t *testing.T) {
	client := &fakeClient{fn: answerAll(t)}
	r, cache := newTestResolver(t, client, &fakeLimiter{})
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, []string{"acme"}, map[string]json.RawMessage{
		"acme": json.RawMessage(`"cached.com"`),
	}, aicache.NamespaceDomains))

	res, err := r.Resolve(ctx, Domains, []string{"acme", "globex"}, gemini.ModelFlash)
	require.NoError(t, err)
	assert.Len(t, res, 2)
	assert.JSONEq(t, `"cached.com"`, string(res["acme"]))

	require.Len(t, client.calls, 1)
	assert.Equal(t, []string{"globex"}, chunkFromPrompt(t, client.calls[0]))
}

func TestResolveChunksLargeInputs(t *testing.T) {
	client := &fakeClient{fn: answerAll(t)}
	limiter := &fakeLimiter{}
	r, _ := newTestResolver(t, client, limiter)

	items := make([]string, 250)
	for i := range items {
		items[i] = "company" + string(rune('a'+i%26)) + "-" + strings.Repeat("x", i/26)
	}

	res, err := r.Resolve(context.Background(), Domains, items, gemini.ModelFlash)
	require.NoError(t, err)
	assert.Len(t, res, 250)

	// 250 items at 100 per chunk is 3 calls, each gated by the limiter.
	assert.Len(t, client.calls, 3)
	assert.Equal(t, 3, limiter.slots)
}

func TestResolveCachesChunkResults(t *testing.T) {
	client := &fakeClient{fn: answerAll(t)}
	r, cache := newTestResolver(t, client, &fakeLimiter{})
	ctx := context.Background()

	_, err := r.Resolve(ctx, Domains, []string{"acme"}, gemini.ModelFlash)
	require.NoError(t, err)

	cached, missing := cache.Lookup(ctx, []string{"acme"}, aicache.NamespaceDomains)
	assert.Empty(t, missing)
	assert.JSONEq(t, `"acme.com"`, string(cached["acme"]))
}

func TestResolveChunkFailureIsIsolated(t *testing.T) {
	var n int
	var mu sync.Mutex
	client := &fakeClient{}
	client.fn = func(prompt, model string) (map[string]json.RawMessage, error) {
		mu.Lock()
		n++
		fail := n == 1
		mu.Unlock()
		if fail {
			return nil, &gemini.APIError{Status: 500}
		}
		return answerAll(t)(prompt, model)
	}
	r, _ := newTestResolver(t, client, &fakeLimiter{})

	items := make([]string, 150)
	for i := range items {
		items[i] = "co-" + strings.Repeat("z", i+1)
	}

	res, err := r.Resolve(context.Background(), Domains, items, gemini.ModelFlash)
	require.NoError(t, err)
	// One of the two chunks failed; the other's 50-or-100 results survive.
	assert.NotEmpty(t, res)
	assert.Less(t, len(res), 150)
}

func TestResolveConcurrencyCap(t *testing.T) {
	client := &fakeClient{fn: answerAll(t)}
	r, _ := newTestResolver(t, client, &fakeLimiter{})

	items := make([]string, 600)
	for i := range items {
		items[i] = "co-" + strings.Repeat("q", i+1)
	}

	_, err := r.Resolve(context.Background(), Domains, items, gemini.ModelPro)
	require.NoError(t, err)
	assert.LessOrEqual(t, client.maxInFlight, 2)

	client2 := &fakeClient{fn: answerAll(t)}
	r2, _ := newTestResolver(t, client2, &fakeLimiter{})
	_, err = r2.Resolve(context.Background(), Domains, items, gemini.ModelFlash)
	require.NoError(t, err)
	assert.LessOrEqual(t, client2.maxInFlight, 3)
}

func TestResolveDelaysBetweenWaves(t *testing.T) {
	client := &fakeClient{fn: answerAll(t)}
	r, _ := newTestResolver(t, client, &fakeLimiter{})

	var delays []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	// 400 items, 100 per chunk, 3 chunks per wave: two waves, one delay.
	items := make([]string, 400)
	for i := range items {
		items[i] = "co-" + strings.Repeat("w", i+1)
	}
	_, err := r.Resolve(context.Background(), Domains, items, gemini.ModelFlash)
	require.NoError(t, err)

	require.Len(t, delays, 1)
	assert.Equal(t, 500*time.Millisecond, delays[0])
}

func TestResolveCancelledContext(t *testing.T) {
	client := &fakeClient{fn: answerAll(t)}
	r, _ := newTestResolver(t, client, &fakeLimiter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, Domains, []string{"acme"}, gemini.ModelFlash)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChunkSizes(t *testing.T) {
	// The output-token budget allows far more than the hard caps, so the
	// caps bind.
	assert.Equal(t, 100, Domains.ChunkSize())
	assert.Equal(t, 50, Names.ChunkSize())
}
