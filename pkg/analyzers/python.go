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
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	Register(NewPython())
}

// pythonFrameworkHints maps an import-statement substring to a framework
// name, spanning web frameworks, ORMs, and ML stacks
var pythonFrameworkHints = []struct{ substring, name string }{
	{"django", "Django"},
	{"flask", "Flask"},
	{"fastapi", "FastAPI"},
	{"sqlalchemy", "SQLAlchemy"},
	{"django.db", "Django ORM"},
	{"torch", "PyTorch"},
	{"tensorflow", "TensorFlow"},
	{"sklearn", "scikit-learn"},
	{"pandas", "pandas"},
	{"numpy", "NumPy"},
	{"transformers", "Hugging Face Transformers"},
}

var pythonNodeTypes = map[string]bool{
	"function_definition":   true,
	"class_definition":      true,
	"decorated_definition":  true,
	"import_statement":      true,
	"import_from_statement": true,
	"decorator":             true,
}

// Python is the C6 variant for Python sources. Grounded on kraklabs-cie's
// parser_interface.go CodeParser shape, walking tree-sitter-python's AST
// instead of a Go grammar.
type Python struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewPython builds the Python analyser, initialising its own
// *sitter.Parser bound to the Python grammar.
func NewPython() *Python {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Python{parser: p}
}

func (p *Python) Language() string { return "python" }

func (p *Python) Analyze(ctx context.Context, files []File) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var fileCount, totalLOC, commentLOC, funcCount, classCount int
	var testUnit, testIntegration int
	var typedSignatures, totalSignatures, asyncFuncs, decoratorUses int
	frameworkSet := make(map[string]bool)
	decoratorNames := make(map[string]int)
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

		lines, comments := countLines(content, hashComments)
		totalLOC += lines
		commentLOC += comments

		counts, err := treeWalk(ctx, p.parser, content, pythonNodeTypes, func(n *sitter.Node) {
			switch n.Type() {
			case "function_definition":
				totalSignatures++
				if hasTypedParamOrReturn(n, content) {
					typedSignatures++
				}
				if strings.HasPrefix(nodeText(n, content), "async ") || isAsyncDef(n, content) {
					asyncFuncs++
				}
			case "decorator":
				decoratorUses++
				name := strings.TrimPrefix(strings.TrimSpace(nodeText(n, content)), "@")
				if idx := strings.IndexAny(name, "(\n"); idx >= 0 {
					name = name[:idx]
				}
				if name != "" {
					decoratorNames[name]++
				}
			}
		})
		if err != nil {
			parseErrors++
			continue
		}
		funcCount += counts["function_definition"]
		classCount += counts["class_definition"]

		lowerContent := strings.ToLower(string(content))
		for _, hint := range pythonFrameworkHints {
			if strings.Contains(lowerContent, hint.substring) {
				frameworkSet[hint.name] = true
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

	typeHintDensity := 0.0
	if totalSignatures > 0 {
		typeHintDensity = float64(typedSignatures) / float64(totalSignatures)
	}

	frameworks := make([]string, 0, len(frameworkSet))
	for fw := range frameworkSet {
		frameworks = append(frameworks, fw)
	}

	features := map[string]any{
		"type_hint_density": typeHintDensity,
		"async_function_count": asyncFuncs,
		"framework_hints":   frameworks,
		"decorator_usage":   decoratorNames,
	}

	summary := fmt.Sprintf(
		"Python: %d files, %d LOC (%d comment), %d functions, %d classes, type-hint density %.0f%%, %d async functions, %d parse errors, %d binary files skipped",
		fileCount, totalLOC, commentLOC, funcCount, classCount, typeHintDensity*100, asyncFuncs, parseErrors, skipped,
	)

	return Result{
		Metrics:     codeMetrics(fileCount, totalLOC, commentLOC, funcCount, classCount, testUnit, testIntegration),
		Features:    features,
		SummaryText: summary,
	}, nil
}

// hasTypedParamOrReturn reports whether a function_definition node carries
// at least one typed parameter or a return-type annotation.
func hasTypedParamOrReturn(n *sitter.Node, content []byte) bool {
	text := nodeText(n, content)
	// A return annotation (") -> Type:") is found by a substring check after
	// the first ")"; typed parameters are found by scanning the parameters
	// node's children for typed_parameter/typed_default_parameter.
	if idx := strings.Index(text, ")"); idx >= 0 && strings.Contains(text[idx:], "->") {
		return true
	}
	paramsNode := n.ChildByFieldName("parameters")
	if paramsNode == nil {
		return false
	}
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child.Type() == "typed_parameter" || child.Type() == "typed_default_parameter" {
			return true
		}
	}
	return false
}

func isAsyncDef(n *sitter.Node, content []byte) bool {
	// tree-sitter-python represents "async def" with a leading "async"
	// token as the function_definition's first child.
	if n.ChildCount() == 0 {
		return false
	}
	first := n.Child(0)
	return first != nil && nodeText(first, content) == "async"
}
