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

// Package bootstrap wires the pipeline core's capability and persistence
// surfaces into a runnable Runtime for cmd/forgepath. It replaces the
// teacher's CozoDB-specific InitProject/OpenProject (which opened an
// embedded graph database on disk) with construction of the generic
// repository.Repository contract plus the concrete in-memory reference
// implementation pkg/repository/memory, since persistence is a
// caller-supplied contract rather than a concrete database the core owns.
package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forgepath/core/pkg/archive"
	"github.com/forgepath/core/pkg/consent"
	"github.com/forgepath/core/pkg/contentstore"
	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/gitlog"
	"github.com/forgepath/core/pkg/gitmetrics"
	"github.com/forgepath/core/pkg/llm"
	"github.com/forgepath/core/pkg/merge"
	"github.com/forgepath/core/pkg/pipeline"
	"github.com/forgepath/core/pkg/repository"
	"github.com/forgepath/core/pkg/repository/memory"
)

// Config is the decoded shape of a forgepath.yaml config file: ignore
// patterns for archive extraction, the identity used to classify the
// running user's Git role, score weights, and LLM provider selection.
// Grounded on cmd/cie's .cie/project.yaml decode in
// LoadConfig, generalised from "one indexed repo" to this domain's
// batch-of-projects shape.
type Config struct {
	IgnoreGlobs    []string             `yaml:"ignore_globs"`
	Identity       IdentityConfig       `yaml:"identity"`
	ScoreWeights   *domain.ScoreWeights `yaml:"score_weights"`
	LLM            LLMConfig            `yaml:"llm"`
	MaxBullets     int                  `yaml:"max_bullets"`
	WorkerPoolSize int                  `yaml:"worker_pool_size"`
}

// IdentityConfig names the current user for C7's role classification.
type IdentityConfig struct {
	Names  []string `yaml:"names"`
	Emails []string `yaml:"emails"`
}

// LLMConfig selects and configures the optional LLM provider. A zero value
// leaves AI paths disabled; UseAI still requires the consent gate to grant
// CanUseLLM at call time.
type LLMConfig struct {
	UseAI    bool   `yaml:"use_ai"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// LoadConfig reads and decodes a forgepath.yaml config file. A missing
// path is not an error: it returns a zero-value Config, so cmd/forgepath
// can run the pipeline with every ambient default (no AI, no ignore
// overrides) without requiring a config file up front.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Runtime bundles every capability surface cmd/forgepath drives: the
// repository the whole pipeline persists through, the content store C1/C3
// share, and a ready-to-use Pipeline for C9. Ingest is kept separate
// (pkg/archive + pkg/merge) since it is invoked once per archive upload,
// while Pipeline.AnalyzeBatch may be invoked repeatedly against whatever
// projects are already in the repository.
type Runtime struct {
	Repo     repository.Repository
	Content  *contentstore.Store
	Consent  *consent.Gate
	Pipeline *pipeline.Pipeline
	Logger   *slog.Logger
	cfg      *Config
}

// NewRuntime constructs a Runtime from cfg. userID identifies the caller
// for per-user consent lookups (pkg/consent falls back to the global
// record, then denies,).
func NewRuntime(cfg *Config, userID string, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &Config{}
	}

	repo := memory.New()
	content := contentstore.New()
	gate := consent.New(repo)

	if cfg.ScoreWeights != nil {
		if err := repo.SetScoreConfig(context.Background(), *cfg.ScoreWeights); err != nil {
			return nil, err
		}
	}

	deps := pipeline.Deps{
		Repo:           repo,
		Content:        content,
		GitProvider:    gitlog.NewCLIProvider(logger, 10*time.Second),
		Consent:        gate,
		Model:          cfg.LLM.Model,
		Identity:       gitmetrics.Identity{Names: cfg.Identity.Names, Emails: cfg.Identity.Emails},
		UserID:         userID,
		Logger:         logger,
	}

	if cfg.LLM.UseAI {
		c, err := buildCompleter(cfg.LLM)
		if err != nil {
			logger.Warn("bootstrap.llm.unavailable", "err", err)
		} else {
			deps.Completer = c
		}
	}

	return &Runtime{
		Repo:     repo,
		Content:  content,
		Consent:  gate,
		Pipeline: pipeline.New(deps),
		Logger:   logger,
		cfg:      cfg,
	}, nil
}

// buildCompleter resolves an llm.Provider per LLMConfig and wraps it as the
// narrow Completer capability pkg/pipeline/pkg/skills/pkg/bullets consume,
// grounded on pkg/llm/helpers.go's DefaultProvider/ProviderFromEnv
// selection and capability.go's ProviderCompleter adapter.
func buildCompleter(cfg LLMConfig) (*llm.ProviderCompleter, error) {
	var provider llm.Provider
	var err error
	if cfg.Provider != "" {
		provider, err = llm.NewProvider(llm.ProviderConfig{Type: cfg.Provider, DefaultModel: cfg.Model})
	} else {
		provider, err = llm.DefaultProvider()
	}
	if err != nil {
		return nil, err
	}
	return llm.NewCompleter(provider, cfg.Model), nil
}

// IngestArchive extracts one ZIP archive and merges its discovered project
// candidates into Runtime's repository. It returns both
// the extraction result, so a caller can still reach each candidate's raw
// Files (e.g. to materialise a scratch working tree for C7's Git
// subprocess), and the merge outcome. ignoreGlobs overrides the Runtime's
// configured patterns when non-empty; projectMapping maps a candidate name
// to an existing project ID, the same as merge.Merge's contract.
func (rt *Runtime) IngestArchive(ctx context.Context, r io.ReaderAt, size int64, maxUncompressedBytes int64, ignoreGlobs []string, projectMapping map[string]string) (*archive.ExtractResult, *merge.Result, error) {
	globs := ignoreGlobs
	if len(globs) == 0 {
		globs = rt.cfg.IgnoreGlobs
	}
	result, err := archive.Extract(ctx, rt.Logger, r, size, maxUncompressedBytes, globs)
	if err != nil {
		return nil, nil, err
	}
	mergeResult, err := merge.Merge(ctx, merge.Deps{Projects: rt.Repo, Files: rt.Repo, Store: rt.Content}, result.Candidates, projectMapping)
	if err != nil {
		return result, nil, err
	}
	return result, mergeResult, nil
}

// AnalyzeOptions returns the default pipeline.Options derived from the
// Runtime's Config, so callers don't need to re-thread MaxBullets/UseAI/
// WorkerPoolSize through every cmd/forgepath subcommand.
func (rt *Runtime) AnalyzeOptions() pipeline.Options {
	return pipeline.Options{
		UseAI:          rt.cfg.LLM.UseAI,
		MaxBullets:     rt.cfg.MaxBullets,
		WorkerPoolSize: rt.cfg.WorkerPoolSize,
	}
}

// GrantLLMConsent upserts an AllowLLM=true ConsentRecord for userID,
// letting cmd/forgepath's --allow-llm flag opt a single demonstration run
// into the AI path without requiring a separate persisted consent store
//.
func (rt *Runtime) GrantLLMConsent(ctx context.Context, userID string, allowedModels []string) error {
	return rt.Repo.UpsertConsent(ctx, userID, &domain.ConsentRecord{
		AllowLLM:      true,
		AllowedModels: allowedModels,
		UpdatedAt:     time.Now(),
	})
}
