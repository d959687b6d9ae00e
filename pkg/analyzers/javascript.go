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
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func init() {
	js := NewJavaScript(false)
	ts := NewJavaScript(true)
	Register(js)
	Register(ts)
}

var jsFrontendFrameworkHints = []struct{ substring, name string }{
	{`"react"`, "React"},
	{"from \"react\"", "React"},
	{`"vue"`, "Vue"},
	{`"svelte"`, "Svelte"},
	{`"@angular/core"`, "Angular"},
}

var jsTestFrameworkHints = []struct{ substring, name string }{
	{`"jest"`, "Jest"},
	{"from \"vitest\"", "Vitest"},
	{`"mocha"`, "Mocha"},
	{`"@testing-library`, "Testing Library"},
	{`"cypress"`, "Cypress"},
}

var jsNodeTypes = map[string]bool{
	"function_declaration": true,
	"function":             true,
	"arrow_function":       true,
	"method_definition":    true,
	"class_declaration":    true,
	"import_statement":     true,
	"await_expression":     true,
}

// JavaScript is the C6 variant for the JS/TS family (treated
// as one variant). isTypeScript selects the TypeScript grammar/extension
// and enables the TS-adoption flag; both instances share node-type
// detection logic.
type JavaScript struct {
	mu           sync.Mutex
	parser       *sitter.Parser
	isTypeScript bool
}

// NewJavaScript builds a JS or TS analyser depending on isTypeScript.
func NewJavaScript(isTypeScript bool) *JavaScript {
	p := sitter.NewParser()
	if isTypeScript {
		p.SetLanguage(typescript.GetLanguage())
	} else {
		p.SetLanguage(javascript.GetLanguage())
	}
	return &JavaScript{parser: p, isTypeScript: isTypeScript}
}

func (j *JavaScript) Language() string {
	if j.isTypeScript {
		return "typescript"
	}
	return "javascript"
}

func (j *JavaScript) Analyze(ctx context.Context, files []File) (Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var fileCount, totalLOC, commentLOC, funcCount, classCount int
	var testUnit, testIntegration int
	var esmCount, cjsCount, asyncAwaitUses int
	frontendSet := make(map[string]bool)
	testFrameworkSet := make(map[string]bool)
	nodeHint, browserHint := false, false
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

		counts, err := treeWalk(ctx, j.parser, content, jsNodeTypes, nil)
		if err != nil {
			parseErrors++
			continue
		}
		funcCount += counts["function_declaration"] + counts["function"] + counts["arrow_function"] + counts["method_definition"]
		classCount += counts["class_declaration"]
		if counts["await_expression"] > 0 {
			asyncAwaitUses += counts["await_expression"]
		}

		lowerContent := strings.ToLower(string(content))
		if strings.Contains(lowerContent, "import ") || strings.Contains(lowerContent, "export ") {
			esmCount++
		}
		if strings.Contains(lowerContent, "require(") || strings.Contains(lowerContent, "module.exports") {
			cjsCount++
		}
		if strings.Contains(lowerContent, "document.") || strings.Contains(lowerContent, "window.") {
			browserHint = true
		}
		if strings.Contains(lowerContent, "require(") || strings.Contains(lowerContent, "process.env") || strings.Contains(lowerContent, "\"fs\"") {
			nodeHint = true
		}

		for _, hint := range jsFrontendFrameworkHints {
			if strings.Contains(lowerContent, hint.substring) {
				frontendSet[hint.name] = true
			}
		}
		for _, hint := range jsTestFrameworkHints {
			if strings.Contains(lowerContent, hint.substring) {
				testFrameworkSet[hint.name] = true
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

	moduleSystem := "CJS"
	if esmCount >= cjsCount {
		moduleSystem = "ESM"
	}
	if esmCount == 0 && cjsCount == 0 {
		moduleSystem = "unknown"
	}

	runtimeHint := "unknown"
	switch {
	case nodeHint && !browserHint:
		runtimeHint = "node"
	case browserHint && !nodeHint:
		runtimeHint = "browser"
	case nodeHint && browserHint:
		runtimeHint = "mixed"
	}

	// Pick deterministically by walking jsFrontendFrameworkHints in table
	// order rather than ranging over frontendSet, whose iteration order is
	// unspecified; a project matching more than one hint always reports the
	// same frontend on repeated runs over identical input.
	frontend := "none"
	for _, hint := range jsFrontendFrameworkHints {
		if frontendSet[hint.name] {
			frontend = hint.name
			break
		}
	}

	testFrameworks := make([]string, 0, len(testFrameworkSet))
	for fw := range testFrameworkSet {
		testFrameworks = append(testFrameworks, fw)
	}

	features := map[string]any{
		"module_system":            moduleSystem,
		"typescript_adoption":      j.isTypeScript,
		"frontend_framework_hint":  frontend,
		"runtime_hint":             runtimeHint,
		"uses_async_await":         asyncAwaitUses > 0,
		"async_await_use_count":    asyncAwaitUses,
		"test_framework_hints":     testFrameworks,
	}

	summary := fmt.Sprintf(
		"%s: %d files, %d LOC (%d comment), %d functions, %d classes, module system %s, runtime hint %s, %d parse errors, %d binary files skipped",
		j.Language(), fileCount, totalLOC, commentLOC, funcCount, classCount, moduleSystem, runtimeHint, parseErrors, skipped,
	)

	return Result{
		Metrics:     codeMetrics(fileCount, totalLOC, commentLOC, funcCount, classCount, testUnit, testIntegration),
		Features:    features,
		SummaryText: summary,
	}, nil
}
