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
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/forgepath/core/internal/bootstrap"
	"github.com/forgepath/core/internal/contract"
	pkgerrors "github.com/forgepath/core/internal/errors"
	"github.com/forgepath/core/pkg/archive"
)

// runRun executes the 'run' command: extract a ZIP archive, merge its
// discovered project candidates into a fresh in-memory repository, write
// each candidate's files to a scratch directory so C7's Git subprocess has
// a real working tree to inspect, then analyse the whole batch and print
// the rank-ordered result. Grounded on cmd/cie/index.go's single-command
// "index then report" shape, fanned out over possibly many discovered
// projects instead of one repository.
func runRun(args []string, configPath string) {
	fs := pflag.NewFlagSet("run", pflag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	allowLLM := fs.Bool("allow-llm", false, "Grant this run's user one-shot LLM consent for AI-augmented skills/bullets")
	model := fs.String("model", "", "LLM model override (requires --allow-llm)")
	userID := fs.String("user", "local", "User ID to classify Git authorship against and to grant consent for")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: forgepath run <archive.zip> [options]

Ingests one ZIP archive, discovers its project candidates, merges them into
a fresh repository, analyses every project, and prints a rank-ordered
report with résumé bullets.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	archivePath := fs.Arg(0)

	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		pkgerrors.FatalError(pkgerrors.NewInvalidArgument("cannot load config", err.Error(), "check --config path"), *jsonOutput)
	}
	cfg.LLM.UseAI = cfg.LLM.UseAI || *allowLLM
	if *model != "" {
		cfg.LLM.Model = *model
	}

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

	f, err := os.Open(archivePath)
	if err != nil {
		pkgerrors.FatalError(pkgerrors.NewInvalidArgument("cannot open archive", err.Error(), "check the archive path"), *jsonOutput)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		pkgerrors.FatalError(pkgerrors.NewInvalidArgument("cannot stat archive", err.Error(), ""), *jsonOutput)
	}

	result, mergeResult, err := rt.IngestArchive(ctx, f, info.Size(), contract.ArchiveSoftLimitBytes(), cfg.IgnoreGlobs, nil)
	if err != nil {
		pkgerrors.FatalError(err, *jsonOutput)
	}

	projectIDs := make([]string, 0, len(mergeResult.Outcomes))
	projectRoots := make(map[string]string, len(mergeResult.Outcomes))
	for i, outcome := range mergeResult.Outcomes {
		projectIDs = append(projectIDs, outcome.ProjectID)
		scratch, err := os.MkdirTemp("", "forgepath-"+sanitizeDirName(outcome.CandidateName))
		if err != nil {
			continue
		}
		defer os.RemoveAll(scratch)
		if err := archive.WriteScratch(scratch, result.Candidates[i].Files); err == nil {
			projectRoots[outcome.ProjectID] = scratch
		}
	}

	opts := rt.AnalyzeOptions()
	opts.ProjectRoots = projectRoots

	analyses, err := rt.Pipeline.AnalyzeBatch(ctx, projectIDs, opts)
	if err != nil {
		rt.Logger.Warn("forgepath.run.partial_failure", "err", err)
	}

	if *jsonOutput {
		printAnalysesJSON(analyses)
	} else {
		printAnalysesText(analyses)
	}
}

func sanitizeDirName(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '-'
		}
		return r
	}, name)
}
