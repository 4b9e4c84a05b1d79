// Package batch fans enrichment lookups out to the Gemini API in
// cache-aware, rate-limited chunks and merges the partial results.
package batch

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leads-cli/internal/aicache"
	"github.com/sells-group/leads-cli/internal/i18n"
	"github.com/sells-group/leads-cli/pkg/gemini"
)

// Keep chunks well under the model's output ceiling so a response never
// truncates mid-object.
const (
	outputTokenBudget = gemini.MaxOutputTokens / 2
	waveDelay         = 500 * time.Millisecond
)

// Task describes one kind of batched lookup: which cache namespace it
// reads and writes, which prompt template it fills, and how its chunk
// size is derived.
type Task struct {
	Namespace     aicache.Namespace
	PromptKey     string
	Placeholder   string
	HardCap       int
	TokensPerItem int
}

var (
	// Domains maps company names to their main website domain.
	Domains = Task{
		Namespace:     aicache.NamespaceDomains,
		PromptKey:     "domainPrompt",
		Placeholder:   "companyNames",
		HardCap:       100,
		TokensPerItem: 15,
	}

	// Names splits full person names into first name, last name and title.
	Names = Task{
		Namespace:     aicache.NamespaceNames,
		PromptKey:     "nameSplitPrompt",
		Placeholder:   "fullNames",
		HardCap:       50,
		TokensPerItem: 12,
	}
)

// ChunkSize is the number of items per API call for this task.
func (t Task) ChunkSize() int {
	byBudget := outputTokenBudget / t.TokensPerItem
	if t.HardCap < byBudget {
		return t.HardCap
	}
	return byBudget
}

// Limiter gates API calls per model.
type Limiter interface {
	AcquireSlot(ctx context.Context, model string) error
}

// Resolver answers lookups from the cache first and calls the API only
// for items the cache does not cover.
type Resolver struct {
	client  gemini.Client
	limiter Limiter
	cache   *aicache.Cache
	catalog *i18n.Catalog
	log     *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewResolver(client gemini.Client, limiter Limiter, cache *aicache.Cache, catalog *i18n.Catalog, log *zap.Logger) *Resolver {
	return &Resolver{
		client:  client,
		limiter: limiter,
		cache:   cache,
		catalog: catalog,
		log:     log,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// maxConcurrent limits parallel chunks per wave. Pro is throttled harder
// because its per-minute quota is half that of the flash models.
func maxConcurrent(model string) int {
	if model == gemini.ModelPro {
		return 2
	}
	return 3
}

// Resolve returns a result per item where one could be obtained. Cached
// entries are served without an API call; the remainder is chunked and
// processed in limited-concurrency waves. A failed chunk is logged and
// contributes nothing, so one bad chunk never sinks the run. The returned
// map is partial when chunks fail or the context is cancelled; the error
// is non-nil only for cancellation.
func (r *Resolver) Resolve(ctx context.Context, task Task, items []string, model string) (map[string]json.RawMessage, error) {
	items = dedupe(items)
	if len(items) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	cached, missing := r.cache.Lookup(ctx, items, task.Namespace)
	results := make(map[string]json.RawMessage, len(items))
	for k, v := range cached {
		results[k] = v
	}
	if len(missing) == 0 {
		r.log.Info("all results served from cache",
			zap.String("namespace", string(task.Namespace)),
			zap.Int("items", len(items)),
		)
		return results, nil
	}

	chunks := chunk(missing, task.ChunkSize())
	r.log.Info("resolving items",
		zap.String("namespace", string(task.Namespace)),
		zap.Int("cached", len(cached)),
		zap.Int("missing", len(missing)),
		zap.Int("chunks", len(chunks)),
		zap.String("model", model),
	)

	concurrency := maxConcurrent(model)
	for start := 0; start < len(chunks); start += concurrency {
		end := start + concurrency
		if end > len(chunks) {
			end = len(chunks)
		}
		wave := chunks[start:end]
		waveResults := make([]map[string]json.RawMessage, len(wave))

		g, gctx := errgroup.WithContext(ctx)
		for i, c := range wave {
			i, c := i, c
			idx := start + i + 1
			g.Go(func() error {
				res, err := r.resolveChunk(gctx, task, c, model)
				if err != nil {
					r.log.Warn("chunk failed",
						zap.String("namespace", string(task.Namespace)),
						zap.Int("chunk", idx),
						zap.Int("chunks", len(chunks)),
						zap.Error(err),
					)
					return nil
				}
				waveResults[i] = res
				return nil
			})
		}
		_ = g.Wait()

		for _, res := range waveResults {
			for k, v := range res {
				results[k] = v
			}
		}

		if err := ctx.Err(); err != nil {
			return results, err
		}
		if end < len(chunks) {
			if err := r.sleep(ctx, waveDelay); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

func (r *Resolver) resolveChunk(ctx context.Context, task Task, items []string, model string) (map[string]json.RawMessage, error) {
	if err := r.limiter.AcquireSlot(ctx, model); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	prompt := r.catalog.Message(task.PromptKey, map[string]string{
		task.Placeholder: string(encoded),
	})

	res, err := r.client.Call(ctx, prompt, model)
	if err != nil {
		return nil, err
	}
	// Persist right away so a later chunk failure cannot lose these.
	if err := r.cache.Save(ctx, items, res, task.Namespace); err != nil {
		r.log.Warn("cache save failed", zap.Error(err))
	}
	return res, nil
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

func chunk(items []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
