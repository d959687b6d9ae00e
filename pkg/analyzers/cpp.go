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

package analyzers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

func init() {
	Register(NewCPP(true))
	Register(NewCPP(false))
}

// cppDesignPatternHints follows the same naming-convention heuristic as
// the Java variant, over a smaller catalogue (no Listener, Decorator, Proxy
// or Command entries).
var cppDesignPatternHints = []struct{ suffix, pattern string }{
	{"Singleton", "Singleton"},
	{"Factory", "Factory"},
	{"Builder", "Builder"},
	{"Observer", "Observer"},
	{"Strategy", "Strategy"},
	{"Adapter", "Adapter"},
	{"Visitor", "Visitor"},
}

// cppDataStructureHints and cppComplexityHints are matched against
// identifier/type text to flag "data structure families" and
// "algorithmic-complexity tags from matching against a catalogue of
// idioms" without a real type-resolution pass.
var cppDataStructureHints = []struct{ substring, name string }{
	{"std::vector", "vector"},
	{"std::map", "map"},
	{"std::unordered_map", "hash map"},
	{"std::set", "set"},
	{"std::unordered_set", "hash set"},
	{"std::list", "linked list"},
	{"std::deque", "deque"},
	{"std::stack", "stack"},
	{"std::queue", "queue"},
	{"std::priority_queue", "priority queue"},
}

var cppComplexityHints = []struct{ substring, tag string }{
	{"std::sort", "O(n log n) sort"},
	{"std::binary_search", "O(log n) search"},
	{"std::lower_bound", "O(log n) search"},
	{"for (int i = 0", "O(n) iteration"},
	{"for (auto", "O(n) iteration"},
}

var cppNodeTypes = map[string]bool{
	"function_definition":  true,
	"class_specifier":      true,
	"struct_specifier":     true,
	"template_declaration": true,
	"for_range_loop":       true,
	"new_expression":       true,
}

// CPP is the C6 variant for C and C++ sources (treated as one
// family). isCpp selects which of the two langdetect keys ("c"/"cpp") this
// instance answers to; both share the cpp grammar, which is a superset
// tolerant enough to scan plain C.
type CPP struct {
	mu     sync.Mutex
	parser *sitter.Parser
	isCpp  bool
}

// NewCPP builds the combined C/C++ analyser, registered twice (once per
// langdetect key, "cpp" and "c") by init(). Both instances share the cpp
// grammar, which parses plain C tolerantly enough for this heuristic scan.
func NewCPP(isCpp bool) *CPP {
	p := sitter.NewParser()
	p.SetLanguage(cpp.GetLanguage())
	return &CPP{parser: p, isCpp: isCpp}
}

func (c *CPP) Language() string {
	if c.isCpp {
		return "cpp"
	}
	return "c"
}

func (c *CPP) Analyze(ctx context.Context, files []File) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fileCount, totalLOC, commentLOC, funcCount, classCount int
	var testUnit, testIntegration int
	var smartPointerUses, rangeBasedUses, templateUses int
	dataStructureHits := make(map[string]bool)
	complexityHits := make(map[string]bool)
	patternHits := make(map[string]bool)
	parseErrors := 0
	skipped := 0

	for _, f := range files {
		content := f.Content
		if isBinary(content) {
			skipped++
			continue
		}
		content = sample(content)
		fileCount++

		lines, comments := countLines(content, cLikeComments)
		totalLOC += lines
		commentLOC += comments

		counts, err := treeWalk(ctx, c.parser, content, cppNodeTypes, nil)
		if err != nil {
			parseErrors++
			continue
		}
		funcCount += counts["function_definition"]
		classCount += counts["class_specifier"] + counts["struct_specifier"]
		rangeBasedUses += counts["for_range_loop"]
		templateUses += counts["template_declaration"]

		text := string(content)
		if strings.Contains(text, "unique_ptr") || strings.Contains(text, "shared_ptr") || strings.Contains(text, "weak_ptr") {
			smartPointerUses++
		}

		for _, h := range cppDataStructureHints {
			if strings.Contains(text, h.substring) {
				dataStructureHits[h.name] = true
			}
		}
		for _, h := range cppComplexityHints {
			if strings.Contains(text, h.substring) {
				complexityHits[h.tag] = true
			}
		}
		lowerPath := toLower(f.RelativePath)
		for _, h := range cppDesignPatternHints {
			if strings.Contains(lowerPath, strings.ToLower(h.suffix)) || strings.Contains(text, h.suffix) {
				patternHits[h.pattern] = true
			}
		}

		if isTest, isIntegration := isTestPath(f.RelativePath); isTest {
			if isIntegration {
				testIntegration++
			} else {
				testUnit++
			}
		}
	}

	dataStructures := make([]string, 0, len(dataStructureHits))
	for d := range dataStructureHits {
		dataStructures = append(dataStructures, d)
	}
	complexityTags := make([]string, 0, len(complexityHits))
	for t := range complexityHits {
		complexityTags = append(complexityTags, t)
	}
	patterns := make([]string, 0, len(patternHits))
	for p := range patternHits {
		patterns = append(patterns, p)
	}

	features := map[string]any{
		"smart_pointer_uses":    smartPointerUses,
		"range_based_for_uses":  rangeBasedUses,
		"template_uses":         templateUses,
		"design_pattern_hits":   patterns,
		"data_structure_families": dataStructures,
		"complexity_tags":       complexityTags,
	}

	summary := fmt.Sprintf(
		"%s: %d files, %d LOC (%d comment), %d functions, %d classes/structs, %d smart-pointer uses, %d template uses, %d parse errors, %d binary files skipped",
		c.Language(), fileCount, totalLOC, commentLOC, funcCount, classCount, smartPointerUses, templateUses, parseErrors, skipped,
	)

	return Result{
		Metrics:     codeMetrics(fileCount, totalLOC, commentLOC, funcCount, classCount, testUnit, testIntegration),
		Features:    features,
		SummaryText: summary,
	}, nil
}
