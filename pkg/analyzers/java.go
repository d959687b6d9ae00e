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
	"github.com/smacker/go-tree-sitter/java"
)

func init() {
	Register(NewJava())
}

// javaDesignPatternHints recognises a fixed catalogue of pattern names from
// naming conventions, the cheapest reliable signal available without a
// real type-resolution pass.
var javaDesignPatternHints = []struct{ suffix, pattern string }{
	{"Singleton", "Singleton"},
	{"Factory", "Factory"},
	{"Builder", "Builder"},
	{"Observer", "Observer"},
	{"Listener", "Observer"},
	{"Strategy", "Strategy"},
	{"Adapter", "Adapter"},
	{"Decorator", "Decorator"},
	{"Visitor", "Visitor"},
	{"Proxy", "Proxy"},
	{"Command", "Command"},
}

var javaNodeTypes = map[string]bool{
	"method_declaration":      true,
	"constructor_declaration": true,
	"class_declaration":       true,
	"interface_declaration":   true,
	"enum_declaration":        true,
	"superclass":              true,
	"super_interfaces":        true,
	"marker_annotation":       true,
	"annotation":              true,
}

// Java is the C6 variant for Java sources.
type Java struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewJava builds the Java analyser.
func NewJava() *Java {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Java{parser: p}
}

func (j *Java) Language() string { return "java" }

func (j *Java) Analyze(ctx context.Context, files []File) (Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var fileCount, totalLOC, commentLOC, funcCount, classCount int
	var testUnit, testIntegration int
	var interfaceCount, inheritanceDepthSum, classDeclCount int
	annotationCounts := make(map[string]int)
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

		counts, err := treeWalk(ctx, j.parser, content, javaNodeTypes, func(n *sitter.Node) {
			switch n.Type() {
			case "superclass", "super_interfaces":
				inheritanceDepthSum++
			case "marker_annotation", "annotation":
				name := strings.TrimPrefix(strings.TrimSpace(nodeText(n, content)), "@")
				if idx := strings.IndexAny(name, "(\n "); idx >= 0 {
					name = name[:idx]
				}
				if name != "" {
					annotationCounts[name]++
				}
			}
		})
		if err != nil {
			parseErrors++
			continue
		}
		funcCount += counts["method_declaration"] + counts["constructor_declaration"]
		classCount += counts["class_declaration"]
		interfaceCount += counts["interface_declaration"] + counts["enum_declaration"]
		classDeclCount += counts["class_declaration"]

		matchDesignPatternHints(f.RelativePath, content, patternHits)

		if isTest, isIntegration := isTestPath(f.RelativePath); isTest {
			if isIntegration {
				testIntegration++
			} else {
				testUnit++
			}
		}
	}

	// OOP score (0-10): half from inheritance-clause density relative to
	// classes, half from interface/enum density relative to classes. Both
	// components saturate at 1.0 so a small, thoroughly-interfaced codebase
	// still scores well.
	oopScore := 0.0
	if classDeclCount > 0 {
		inheritanceRatio := clamp01(float64(inheritanceDepthSum) / float64(classDeclCount))
		interfaceRatio := clamp01(float64(interfaceCount) / float64(classDeclCount))
		oopScore = (inheritanceRatio + interfaceRatio) * 5
	}

	patterns := make([]string, 0, len(patternHits))
	for p := range patternHits {
		patterns = append(patterns, p)
	}

	features := map[string]any{
		"oop_score":          oopScore,
		"design_pattern_hits": patterns,
		"annotation_usage":   annotationCounts,
	}

	summary := fmt.Sprintf(
		"Java: %d files, %d LOC (%d comment), %d methods/constructors, %d classes, %d interfaces/enums, OOP score %.1f/10, %d parse errors, %d binary files skipped",
		fileCount, totalLOC, commentLOC, funcCount, classCount, interfaceCount, oopScore, parseErrors, skipped,
	)

	return Result{
		Metrics:     codeMetrics(fileCount, totalLOC, commentLOC, funcCount, classCount, testUnit, testIntegration),
		Features:    features,
		SummaryText: summary,
	}, nil
}

func matchDesignPatternHints(relativePath string, content []byte, hits map[string]bool) {
	lowerPath := toLower(relativePath)
	for _, h := range javaDesignPatternHints {
		if strings.Contains(lowerPath, strings.ToLower(h.suffix)) {
			hits[h.pattern] = true
		}
	}
	// Also scan class/type names inside the file body for the same
	// suffixes, since a pattern implementation doesn't always get its own
	// file.
	text := string(content)
	for _, h := range javaDesignPatternHints {
		if strings.Contains(text, h.suffix) {
			hits[h.pattern] = true
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
