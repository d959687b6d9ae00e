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

// Package main implements the forgepath CLI, a demonstration front end over
// the résumé-building pipeline core (pkg/pipeline and friends).
//
// Usage:
//
//	forgepath run <archive.zip>        Ingest one archive and analyse every
//	                                    discovered project in one pass
//	forgepath analyze <directory>      Analyse one already-extracted
//	                                    directory as a single project
//	forgepath --version                Show version and exit
//
// forgepath is a single-process demonstration CLI: the repository it
// builds (pkg/repository/memory) lives only for the duration of one
// invocation, so "run" and "analyze" each ingest and analyse in the same
// process rather than across separate CLI calls, the way cmd/cie's
// index/status/query split across a persistent on-disk CozoDB.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/forgepath/core/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to forgepath.yaml (default: none, every ambient default applies)")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `forgepath - résumé/portfolio pipeline CLI

Usage:
  forgepath <command> [options]

Commands:
  run       Ingest a ZIP archive and analyse every discovered project
  analyze   Analyse one local directory as a single project
  version   Show version and exit

Global Options:
  --config     Path to forgepath.yaml
  --no-color   Disable colored output
  --version    Show version and exit

Examples:
  forgepath run portfolio.zip
  forgepath run portfolio.zip --allow-llm --json
  forgepath analyze ./my-project

Environment Variables:
  OLLAMA_HOST, OPENAI_API_KEY, ANTHROPIC_API_KEY   select the optional LLM provider for --allow-llm runs

`)
	}

	flag.Parse()
	ui.InitColors(*noColor)

	if *showVersion {
		fmt.Printf("forgepath version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "run":
		runRun(cmdArgs, *configPath)
	case "analyze":
		runAnalyze(cmdArgs, *configPath)
	case "version":
		fmt.Printf("forgepath version %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
