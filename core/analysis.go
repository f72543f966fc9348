package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

// errNoRepositories marks a module that had nothing to analyze.
var errNoRepositories = errors.New("no repositories to analyze")

// moduleInput is the shared, read-only input of every concurrent module.
type moduleInput struct {
	source  contract.DataSource
	dataset *schema.Dataset
	repos   []schema.Repository // analyzed subset, deterministic order
	workers int
}

// moduleFunc is one concurrent analysis.
type moduleFunc[T any] func(ctx context.Context, in *moduleInput) (T, error)

// Orchestrator runs the concurrent analysis modules and then the derived career module.
type Orchestrator struct {
	source        contract.DataSource
	cache         contract.Cache // optional server tier
	workers       int
	moduleTimeout time.Duration
	maxRepos      int

	documentation moduleFunc[schema.DocumentationReport]
	health        moduleFunc[schema.HealthReport]
	behavior      moduleFunc[schema.BehaviorReport]
}

// NewOrchestrator creates an orchestrator reading through source. cache may be nil.
func NewOrchestrator(cfg *contract.Config, source contract.DataSource, cache contract.Cache) *Orchestrator {
	timeout := cfg.ModuleTimeout
	if timeout <= 0 {
		timeout = contract.DefaultModuleTimeout
	}
	maxRepos := cfg.MaxAnalyzedRepos
	if maxRepos <= 0 {
		maxRepos = contract.DefaultMaxAnalyzedRepos
	}
	return &Orchestrator{
		source:        source,
		cache:         cache,
		workers:       max(1, cfg.Workers),
		moduleTimeout: timeout,
		maxRepos:      maxRepos,
		documentation: analyzeDocumentation,
		health:        analyzeHealth,
		behavior:      analyzeBehavior,
	}
}

// Run analyzes the dataset. Module failures never abort siblings; they
// become Unavailable outcomes in the returned bundle.
func (o *Orchestrator) Run(ctx context.Context, ds *schema.Dataset) *schema.AnalysisBundle {
	in := &moduleInput{
		source:  o.source,
		dataset: ds,
		repos:   analyzedRepos(ds.Repositories, o.maxRepos),
		workers: o.workers,
	}
	bundle := &schema.AnalysisBundle{}
	repos := repoFingerprint(ds.Repositories, in.repos)

	var wg sync.WaitGroup
	wg.Go(func() {
		bundle.Documentation = runModule(ctx, o, moduleSlot{kind: schema.DocumentationComponent, user: ds.Username, repos: repos, reuse: true},
			func(ctx context.Context) (schema.DocumentationReport, error) {
				return o.documentation(ctx, in)
			})
	})
	wg.Go(func() {
		bundle.Health = runModule(ctx, o, moduleSlot{kind: schema.HealthComponent, user: ds.Username, repos: repos, reuse: true},
			func(ctx context.Context) (schema.HealthReport, error) {
				return o.health(ctx, in)
			})
	})
	wg.Go(func() {
		bundle.Behavior = runModule(ctx, o, moduleSlot{kind: schema.BehaviorComponent, user: ds.Username, repos: repos, reuse: true},
			func(ctx context.Context) (schema.BehaviorReport, error) {
				return o.behavior(ctx, in)
			})
	})
	wg.Wait()

	// Always derived from this run's sibling outcomes; the cache is written, never read
	bundle.Career = runModule(ctx, o, moduleSlot{kind: schema.CareerComponent, user: ds.Username, repos: repos},
		func(context.Context) (schema.CareerReport, error) {
			return deriveCareer(ds, bundle)
		})

	for _, kind := range schema.AllComponents {
		if reason := bundle.UnavailableReason(kind); reason != "" {
			logProgress(ctx, "Module %s unavailable: %s", kind, reason)
		}
	}
	return bundle
}

type moduleResult[T any] struct {
	value T
	err   error
}

// moduleSlot addresses one module output in the memory tier.
type moduleSlot struct {
	kind  schema.ComponentKind
	user  string
	repos string // repoFingerprint of the input
	reuse bool   // serve a cached output computed over the same repositories
}

// cachedModule is a module output as stored in the memory tier.
type cachedModule struct {
	Repos   string          `json:"repos"`
	Payload json.RawMessage `json:"payload"`
}

// repoFingerprint identifies the repository set a module output was computed over.
func repoFingerprint(all, analyzed []schema.Repository) string {
	var latest int64
	for _, r := range analyzed {
		latest = max(latest, r.PushedAt.UnixMilli())
	}
	return fmt.Sprintf("%d/%d/%d", len(all), len(analyzed), latest)
}

// runModule serves one module from the cache or runs it under its own timeout.
// Errors, panics and timeouts become Unavailable outcomes.
func runModule[T any](ctx context.Context, o *Orchestrator, slot moduleSlot, fn func(context.Context) (T, error)) schema.Outcome[T] {
	key := schema.CacheKey(string(slot.kind), slot.user)
	if o.cache != nil && slot.reuse {
		if cached, ok := lookupModule[T](o.cache, key, slot.repos); ok {
			return schema.Computed(cached)
		}
	}

	mctx, cancel := context.WithTimeout(ctx, o.moduleTimeout)
	defer cancel()

	done := make(chan moduleResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- moduleResult[T]{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(mctx)
		done <- moduleResult[T]{value: v, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return schema.Unavailable[T](res.err.Error())
		}
		if o.cache != nil {
			storeModule(o.cache, key, slot.repos, res.value)
		}
		return schema.Computed(res.value)
	case <-mctx.Done():
		return schema.Unavailable[T](fmt.Sprintf("timed out after %s", o.moduleTimeout))
	}
}

// lookupModule decodes a cached output, ignoring entries computed over other repositories.
func lookupModule[T any](cache contract.Cache, key, repos string) (T, bool) {
	var zero T
	raw, ok := cache.Get(key)
	if !ok {
		return zero, false
	}
	var entry cachedModule
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Repos != repos {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(entry.Payload, &v); err != nil {
		return zero, false
	}
	return v, true
}

func storeModule[T any](cache contract.Cache, key, repos string, v T) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if raw, err := json.Marshal(cachedModule{Repos: repos, Payload: payload}); err == nil {
		cache.Set(key, raw)
	}
}
