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

package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/forgepath/core/internal/bootstrap"
	pkgerrors "github.com/forgepath/core/internal/errors"
	"github.com/forgepath/core/pkg/analyzers"
	"github.com/forgepath/core/pkg/archive"
	"github.com/forgepath/core/pkg/domain"
)

// runAnalyze executes the 'analyze' command: treat one already-extracted
// local directory as a single project, seed its FileEntry/ContentObject
// records directly (skipping the archive/merge path, which assumes a
// multi-project ZIP upload), and analyse it. Grounded on cmd/cie/init.go's
// single-repository indexing flow, generalised to this domain's
// project/analysis shape.
func runAnalyze(args []string, configPath string) {
	fs2 := pflag.NewFlagSet("analyze", pflag.ExitOnError)
	jsonOutput := fs2.Bool("json", false, "Output as JSON")
	allowLLM := fs2.Bool("allow-llm", false, "Grant this run's user one-shot LLM consent for AI-augmented skills/bullets")
	name := fs2.String("name", "", "Display name for the project (default: directory basename)")
	userID := fs2.String("user", "local", "User ID to classify Git authorship against and to grant consent for")

	fs2.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: forgepath analyze <directory> [options]

Analyses one local directory as a single project and prints its rank
(a batch of one) with résumé bullets.

Options:
`)
		fs2.PrintDefaults()
	}
	if err := fs2.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs2.NArg() != 1 {
		fs2.Usage()
		os.Exit(1)
	}
	dir := fs2.Arg(0)

	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		pkgerrors.FatalError(pkgerrors.NewInvalidArgument("cannot load config", err.Error(), "check --config path"), *jsonOutput)
	}
	cfg.LLM.UseAI = cfg.LLM.UseAI || *allowLLM

	rt, err := bootstrap.NewRuntime(cfg, *userID, nil)
	if err != nil {
		pkgerrors.FatalError(pkgerrors.NewInternal("cannot initialise runtime", err.Error(), "check LLM provider configuration", err), *jsonOutput)
	}

	ctx := context.Background()
	if *allowLLM {
		if err := rt.GrantLLMConsent(ctx, *userID, nil); err != nil {
			pkgerrors.FatalError(pkgerrors.NewInternal("cannot record consent", err.Error(), "", err), *jsonOutput)
		}
	}

	displayName := *name
	if displayName == "" {
		displayName = filepath.Base(filepath.Clean(dir))
	}

	projectID := uuid.NewString()
	if err := rt.Repo.Create(ctx, &domain.Project{ID: projectID, DisplayName: displayName}); err != nil {
		pkgerrors.FatalError(pkgerrors.NewInternal("cannot create project", err.Error(), "", err), *jsonOutput)
	}

	if err := seedDirectory(ctx, rt, projectID, dir, cfg.IgnoreGlobs); err != nil {
		pkgerrors.FatalError(err, *jsonOutput)
	}

	opts := rt.AnalyzeOptions()
	opts.ProjectRoots = map[string]string{projectID: dir}

	analyses, err := rt.Pipeline.AnalyzeBatch(ctx, []string{projectID}, opts)
	if err != nil {
		rt.Logger.Warn("forgepath.analyze.failure", "err", err)
	}

	if *jsonOutput {
		printAnalysesJSON(analyses)
	} else {
		printAnalysesText(analyses)
	}
}

// seedDirectory walks dir, skipping any path matching an ignore glob or
// the .git directory itself (C7 reads .git directly via the Git
// subprocess, not through FileEntry records), and records each regular
// file as a ContentObject plus FileEntry under projectID.
func seedDirectory(ctx context.Context, rt *bootstrap.Runtime, projectID, dir string, ignoreGlobs []string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == ".hg" || d.Name() == ".svn" {
				return filepath.SkipDir
			}
			return nil
		}
		for _, g := range ignoreGlobs {
			if archive.MatchesGlob(rel, g) {
				return nil
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil // unreadable file (permissions, broken symlink): skip, never abort the walk
		}
		if analyzers.IsProbablyBinary(data) {
			return nil
		}
		hash, err := rt.Content.Put(ctx, data)
		if err != nil {
			return err
		}
		if err := rt.Repo.PutContentObject(ctx, &domain.ContentObject{Hash: hash, Size: int64(len(data))}); err != nil {
			return err
		}
		return rt.Repo.UpsertFileEntry(ctx, &domain.FileEntry{
			ProjectID:    projectID,
			RelativePath: rel,
			ContentHash:  hash,
		})
	})
}
