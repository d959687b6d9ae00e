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

	"github.com/forgepath/core/pkg/domain"
)

// Generic is the file-count/loc/language-only fallback path
// names explicitly: used whenever a project's detected language has no
// registered variant, or a registered variant returns ANALYSER_FAILED.
// It is never itself registered under a language key; pkg/pipeline calls
// it directly.
type Generic struct{}

// NewGeneric builds the fallback analyser.
func NewGeneric() *Generic { return &Generic{} }

func (g *Generic) Language() string { return "" }

// Analyze counts files and approximate lines of code only; it never
// fails.
func (g *Generic) Analyze(_ context.Context, files []File) (Result, error) {
	var fileCount, totalLOC int
	var testUnit, testIntegration int
	skipped := 0

	for _, f := range files {
		content := f.Content
		if isBinary(content) {
			skipped++
			continue
		}
		content = sample(content)
		fileCount++
		lines, _ := countLines(content, commentStyle{})
		totalLOC += lines

		if isTest, isIntegration := isTestPath(f.RelativePath); isTest {
			if isIntegration {
				testIntegration++
			} else {
				testUnit++
			}
		}
	}

	summary := fmt.Sprintf("generic analysis: %d files, %d lines of code, %d files skipped as binary", fileCount, totalLOC, skipped)
	return Result{
		Metrics: codeMetrics(fileCount, totalLOC, 0, 0, 0, testUnit, testIntegration),
		Features: map[string]any{
			"note": "language-specific analysis unavailable; generic file/LOC counts only",
		},
		SummaryText: summary,
	}, nil
}

// codeMetrics is a small constructor shared by every variant to avoid
// repeating domain.CodeMetrics{...} field names at each call site.
func codeMetrics(fileCount, totalLOC, commentLOC, functionCount, classCount, testUnit, testIntegration int) domain.CodeMetrics {
	return domain.CodeMetrics{
		FileCount:            fileCount,
		TotalLOC:             totalLOC,
		CommentLOC:           commentLOC,
		FunctionCount:        functionCount,
		ClassCount:           classCount,
		TestCountUnit:        testUnit,
		TestCountIntegration: testIntegration,
	}
}
