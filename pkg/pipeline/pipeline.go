// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline implements the unified analysis aggregator (C9): it
// orchestrates C4 (language detection) through C7 (Git metrics) for a
// single project, invokes C8 (scoring) across the batch, calls C10 to
// produce résumé bullets, and persists the result through pkg/repository.
//
// Grounded on kraklabs-cie's pkg/ingestion/local_pipeline.go for the
// stage-by-stage orchestration shape (start/finish logging with duration,
// sequential stage ordering, partial-failure tolerance per file/function)
// and pkg/ingestion/embedding.go's embedFunctionsParallel for the bounded
// worker-pool batch mode.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/forgepath/core/internal/observability"
	"github.com/forgepath/core/pkg/consent"
	"github.com/forgepath/core/pkg/contentstore"
	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/gitlog"
	"github.com/forgepath/core/pkg/gitmetrics"
	"github.com/forgepath/core/pkg/repository"
	"github.com/forgepath/core/pkg/scoring"
)

// llmCompleter is kept narrow and unexported so this package doesn't need
// to import pkg/llm just to name its Completer type; *llm.ProviderCompleter
// and any test double satisfy it.
type llmCompleter interface {
	Complete(ctx context.Context, prompt, schemaHint string, deadline time.Time) (string, error)
}

// Deps bundles every capability C9 needs to reach C4 through C10. Completer
// may be nil (AI paths are then always skipped in favour of local
// fallbacks); GitProvider may be nil, in which case every project is
// treated as having no usable Git metadata.
type Deps struct {
	Repo        repository.Repository
	Content     *contentstore.Store
	GitProvider gitlog.Provider
	Consent     *consent.Gate
	Completer   llmCompleter
	Model       string
	Identity    gitmetrics.Identity
	UserID      string
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) metrics() *observability.Metrics {
	if d.Metrics != nil {
		return d.Metrics
	}
	return observability.Default
}

// Options configures one AnalyzeBatch call.
type Options struct {
	// Force bypasses the fingerprint skip-gate.
	Force bool
	// UseAI enables the AI-first bullet path; still gated by pkg/consent.
	UseAI bool
	// MaxBullets caps résumé bullets per project; 0 uses the C10 default.
	MaxBullets int
	// WorkerPoolSize bounds concurrent per-project analysis; <= 1 means
	// sequential processing.
	WorkerPoolSize int
	// ProjectRoots maps a project ID to the filesystem path of its
	// extracted working tree, when one is still available, for C7's Git
	// subprocess. A project absent from this map is treated as having no
	// usable Git metadata, the same outcome pkg/gitmetrics reports for a
	// damaged or missing .git directory.
	ProjectRoots map[string]string
}

// Pipeline runs C9 for one or more projects, serialising repeated
// invocations for the same project behind a per-project advisory lock
//.
type Pipeline struct {
	deps Deps

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Pipeline.
func New(deps Deps) *Pipeline {
	deps.metrics().Init()
	return &Pipeline{deps: deps, locks: make(map[string]*sync.Mutex)}
}

func (p *Pipeline) lockFor(projectID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[projectID] = l
	}
	return l
}

// stageResult is one project's C4-C7 output, ready for batch scoring.
type stageResult struct {
	analysis *domain.ProjectAnalysis
	input    scoring.Input
	rank     int
	cached   bool
	err      error
}

// AnalyzeBatch runs C9 across projectIDs and returns one ProjectAnalysis per
// project, in the same order as projectIDs. A project whose own stages
// fail is represented by a nil entry at that index; the returned error
// names every failing project but does not abort the rest of the batch
//.
func (p *Pipeline) AnalyzeBatch(ctx context.Context, projectIDs []string, opts Options) ([]*domain.ProjectAnalysis, error) {
	if opts.WorkerPoolSize < 1 {
		opts.WorkerPoolSize = 1
	}

	start := time.Now()
	defer observability.ObserveDuration(p.deps.metrics().PipelineTotal, start)

	n := len(projectIDs)
	staged := make([]stageResult, n)

	jobs := make(chan int, n)
	var wg sync.WaitGroup
	for w := 0; w < opts.WorkerPoolSize; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					staged[i] = stageResult{err: ctx.Err()}
					continue
				default:
				}
				lock := p.lockFor(projectIDs[i])
				lock.Lock()
				analysis, input, cached, err := p.runStages(ctx, projectIDs[i], opts)
				lock.Unlock()
				staged[i] = stageResult{analysis: analysis, input: input, cached: cached, err: err}
			}
		}()
	}
	for i := range projectIDs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	p.scoreBatch(ctx, projectIDs, staged)

	results := make([]*domain.ProjectAnalysis, n)
	var failures []string
	for i, s := range staged {
		if s.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", projectIDs[i], s.err))
			continue
		}
		if !s.cached {
			if err := p.finishProject(ctx, projectIDs[i], s.analysis, s.rank, opts); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", projectIDs[i], err))
				continue
			}
		}
		results[i] = s.analysis
	}

	if len(failures) > 0 {
		return results, fmt.Errorf("pipeline: %d of %d projects failed: %v", len(failures), n, failures)
	}
	return results, nil
}

// scoreBatch runs C8 across every project that reached scoring inputs in
// this call, including cached ones, so rank stays
// stable across a mixed skip/refresh batch, and writes the resulting
// score/breakdown back onto each analysis in place.
func (p *Pipeline) scoreBatch(ctx context.Context, projectIDs []string, staged []stageResult) {
	var inputs []scoring.Input
	var idx []int
	for i, s := range staged {
		if s.err != nil || s.analysis == nil {
			continue
		}
		inputs = append(inputs, s.input)
		idx = append(idx, i)
	}
	if len(inputs) == 0 {
		return
	}

	weights, err := p.deps.Repo.GetScoreConfig(ctx)
	if err != nil {
		weights = domain.DefaultScoreWeights()
	}

	start := time.Now()
	outputs := scoring.Score(inputs, weights)
	observability.ObserveDuration(p.deps.metrics().ScoreDuration, start)
	p.deps.metrics().ScoreBatches.Inc()

	byID := make(map[string]scoring.Output, len(outputs))
	for _, o := range outputs {
		byID[o.ProjectID] = o
	}
	for _, i := range idx {
		out, ok := byID[projectIDs[i]]
		if !ok {
			continue
		}
		staged[i].analysis.Score = out.Score
		staged[i].analysis.ScoreBreakdown = out.ScoreBreakdown
		staged[i].rank = out.ImportanceRank
	}
}

// gitResult runs C7, tolerating a nil GitProvider or a missing
// project root the same way pkg/gitmetrics tolerates damaged metadata.
func gitResult(ctx context.Context, provider gitlog.Provider, root string, identity gitmetrics.Identity) gitmetrics.Result {
	if provider == nil || root == "" {
		return gitmetrics.Result{Role: domain.RoleUnknown, Diagnostic: "no working tree available for Git metrics"}
	}
	return gitmetrics.Extract(ctx, provider, root, identity)
}
