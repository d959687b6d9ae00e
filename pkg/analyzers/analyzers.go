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

// Package analyzers implements the polymorphic family of language-specific
// code analysers: a registry keyed by the lowercase language
// string pkg/langdetect reports, each variant walking a Tree-sitter AST to
// produce structural metrics plus a language-specific features bag.
//
// Grounded on kraklabs-cie's pkg/ingestion/parser_interface.go (CodeParser
// interface, ParserMode auto/treesitter/simplified) and parser_go.go's
// Tree-sitter walk, generalized into a shared treeWalk helper parameterized
// by per-language node-type tables; the regex/line-count fallback follows
// pkg/tools/analyze.go's countCodeLines heuristic. New languages are added
// by registering a new Analyzer, never by editing an existing variant.
package analyzers

import (
	"context"

	"github.com/forgepath/core/pkg/domain"
)

// File is the minimal per-file view an Analyzer needs.
type File struct {
	RelativePath string
	Content      []byte
}

// Result is one variant's output (the analyse(project_files)
// contract): structural metrics, a language-specific features bag, and a
// human-readable summary that also reports any per-file parse errors.
type Result struct {
	Metrics     domain.CodeMetrics
	Features    map[string]any
	SummaryText string
}

// Analyzer is the capability every language-specific variant implements.
// Analyze must never abort on a single bad file — per-file parse errors
// are accumulated and reported in Result.SummaryText. A variant may still
// return a non-nil error for a catastrophic, whole-variant failure (e.g.
// the underlying grammar could not be initialised); callers treat that as
// ANALYSER_FAILED and fall back to Generic.
type Analyzer interface {
	Language() string
	Analyze(ctx context.Context, files []File) (Result, error)
}

// MaxSampledFileBytes caps how much of one file is scanned; larger files
// are sampled rather
// than skipped outright, so a single huge generated file doesn't dominate
// wall-clock or skew comment/LOC ratios.
const MaxSampledFileBytes = 512 * 1024

// registry is populated by each variant's init() via Register.
var registry = map[string]Analyzer{}

// Register adds an Analyzer under its own Language() key. Intended to be
// called from each variant's init(); a later Register for the same key
// replaces the earlier one, the same permissive last-wins
// style pkg/llm.NewProvider's type switch uses for pluggable backends.
func Register(a Analyzer) {
	registry[a.Language()] = a
}

// Get looks up the registered Analyzer for language, which must already be
// lower-cased the way pkg/langdetect reports it.
func Get(language string) (Analyzer, bool) {
	a, ok := registry[language]
	return a, ok
}

// Languages lists every currently-registered language key, sorted is the
// caller's job; order here is map-iteration order and not meant for
// display.
func Languages() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}

// IsProbablyBinary reports whether content looks like binary data, using
// the same NUL-byte-in-the-first-8KiB heuristic every Analyzer variant
// uses to skip binary files. Exported so callers outside this package
// (pkg/pipeline's skill-extraction file loop) can apply the identical
// binary/text split before handing files to pkg/skills.
func IsProbablyBinary(content []byte) bool {
	return isBinary(content)
}

// isBinary reports whether content looks like binary data: a NUL byte in
// the first 8KiB is treated as a binary signature, so binary files are
// skipped rather than parsed.
func isBinary(content []byte) bool {
	n := len(content)
	if n > 8192 {
		n = 8192
	}
	for i := 0; i < n; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

// sample truncates content to MaxSampledFileBytes, the same CodeText
// truncation kraklabs-cie's parser_go.go applies via SetMaxCodeTextSize,
// but here applied before parsing rather than after extraction.
func sample(content []byte) []byte {
	if len(content) <= MaxSampledFileBytes {
		return content
	}
	return content[:MaxSampledFileBytes]
}

// isTestPath applies pkg/skills' hasTestDirectory heuristics plus a
// "test_" filename match, and splits integration from unit tests for the
// test_count_unit/test_count_integration metrics.
func isTestPath(relativePath string) (isTest, isIntegration bool) {
	lower := toLower(relativePath)
	if containsAny(lower, []string{"/integration/", "_integration_test.", ".integration.test.", "integration_test."}) {
		return true, true
	}
	if containsAny(lower, []string{"/test/", "/tests/", "/__tests__/", "_test.", ".test.", ".spec.", "test_"}) {
		return true, false
	}
	return false, false
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}
