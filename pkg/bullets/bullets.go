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

// Package bullets implements the C10 résumé bullet generator: a strict
// AI-first, local-fallback chain. The AI stage reuses
// pkg/skills' retry/backoff shape against pkg/llm.Completer; the local
// stage is a set of per-language templated generators grounded on the
// teacher's deterministic, no-I/O summarisation style
// (pkg/tools/analyze.go's human-readable summary construction).
package bullets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/llm"
)

// MaxBulletChars is the per-bullet length cap for the
// AI-generated path; local generators are written to respect it too.
const MaxBulletChars = 220

// RetryConfig mirrors pkg/skills.RetryConfig; bullet generation reuses the
// same jittered-backoff shape from kraklabs-cie's embedding.go.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig matches pkg/skills' defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialBackoff: 200 * time.Millisecond, MaxBackoff: 2 * time.Second, Multiplier: 2.0}
}

// Deps bundles the AI path's dependencies. Completer may be nil, in which
// case Generate always falls back to the local chain regardless of useAI.
type Deps struct {
	Completer llm.Completer
	Model     string
	Logger    *slog.Logger
	Retry     RetryConfig
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) retry() RetryConfig {
	if d.Retry.MaxRetries == 0 {
		return DefaultRetryConfig()
	}
	return d.Retry
}

// Generate implements generate(analysis, max_bullets, use_ai,
// ai_available) -> (bullets[], source) contract. Errors are never raised
// to the caller: any AI-path failure falls through to the local chain.
func Generate(ctx context.Context, deps Deps, analysis domain.ProjectAnalysis, maxBullets int, useAI, aiAvailable bool) ([]string, domain.BulletSource) {
	if maxBullets <= 0 {
		maxBullets = 3
	}

	if useAI && aiAvailable && deps.Completer != nil {
		if bullets, ok := generateAI(ctx, deps, analysis, maxBullets); ok {
			return bullets, domain.BulletSourceAI
		}
	}

	return generateLocal(analysis, maxBullets), domain.BulletSourceLocal
}

func generateAI(ctx context.Context, deps Deps, analysis domain.ProjectAnalysis, maxBullets int) ([]string, bool) {
	prompt := llm.BulletPrompt{
		ProjectName: analysis.ProjectPath,
		Languages:   []string{analysis.Language},
		Role:        string(analysis.Role),
		Highlights:  highlightsFor(analysis),
		MaxBullets:  maxBullets,
	}

	raw, err := completeWithRetry(ctx, deps, prompt.Build())
	if err != nil {
		deps.logger().Warn("bullets.ai.failed", "project", analysis.ProjectPath, "err", err)
		return nil, false
	}

	arr, ok := llm.ExtractJSONArray(raw)
	if !ok {
		deps.logger().Warn("bullets.ai.malformed_response", "project", analysis.ProjectPath)
		return nil, false
	}

	var candidates []string
	if err := json.Unmarshal([]byte(arr), &candidates); err != nil {
		deps.logger().Warn("bullets.ai.parse_failed", "project", analysis.ProjectPath, "err", err)
		return nil, false
	}

	valid := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || !satisfiesInvariants(c) {
			continue
		}
		if len(c) > MaxBulletChars {
			c = c[:MaxBulletChars]
		}
		valid = append(valid, c)
		if len(valid) == maxBullets {
			break
		}
	}

	if len(valid) == 0 {
		deps.logger().Warn("bullets.ai.empty_after_validation", "project", analysis.ProjectPath)
		return nil, false
	}
	return valid, true
}

func completeWithRetry(ctx context.Context, deps Deps, prompt string) (string, error) {
	retry := deps.retry()
	var result string
	var err error

	for attempt := 0; attempt < retry.MaxRetries; attempt++ {
		deadline := time.Now().Add(30 * time.Second)
		result, err = deps.Completer.Complete(ctx, prompt, llm.SystemPrompts.BulletGeneration, deadline)
		if err == nil {
			return result, nil
		}
		if !isRetryableError(err) || attempt == retry.MaxRetries-1 {
			return "", err
		}
		sleep := computeBackoffWithJitter(retry.InitialBackoff, attempt, retry.Multiplier, retry.MaxBackoff)
		deps.logger().Warn("bullets.ai.retry", "attempt", attempt+1, "sleep_ms", sleep.Milliseconds(), "err", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(sleep):
		}
	}
	return "", err
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"timeout", "temporarily unavailable", "connection refused", "connection reset", "deadline exceeded", "eof", " 429", " 500", " 502", " 503", " 504"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func computeBackoffWithJitter(base time.Duration, attempt int, mult float64, capDur time.Duration) time.Duration {
	exp := float64(base)
	for i := 0; i < attempt; i++ {
		exp *= mult
	}
	d := time.Duration(exp)
	if d > capDur {
		d = capDur
	}
	if d <= 0 {
		return base
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// strongVerbs is the fixed catalogue of acceptable bullet openers, matched
// case-insensitively against a bullet's first word.
var strongVerbs = map[string]bool{
	"built": true, "designed": true, "implemented": true, "developed": true,
	"architected": true, "led": true, "optimized": true, "automated": true,
	"reduced": true, "improved": true, "refactored": true, "shipped": true,
	"delivered": true, "migrated": true, "integrated": true, "scaled": true,
	"authored": true, "maintained": true, "debugged": true, "deployed": true,
	"tested": true, "wrote": true, "created": true, "established": true,
	"drove": true, "launched": true, "streamlined": true, "engineered": true,
	"adopted": true, "applied": true, "structured": true,
}

func satisfiesInvariants(bullet string) bool {
	upper := strings.ToUpper(bullet)
	if strings.Contains(upper, "TODO") || strings.Contains(upper, "FIXME") {
		return false
	}
	firstWord := bullet
	if idx := strings.IndexByte(bullet, ' '); idx >= 0 {
		firstWord = bullet[:idx]
	}
	return strongVerbs[strings.ToLower(firstWord)]
}

func highlightsFor(a domain.ProjectAnalysis) []string {
	var highlights []string
	if a.Git != nil {
		highlights = append(highlights, fmt.Sprintf("%d commits across %d author(s)", a.Git.CommitCount, a.Git.AuthorCount))
	}
	if a.CodeMetrics.FileCount > 0 {
		highlights = append(highlights, fmt.Sprintf("%d files, %d lines of code", a.CodeMetrics.FileCount, a.CodeMetrics.TotalLOC))
	}
	if a.CodeMetrics.TestCountUnit+a.CodeMetrics.TestCountIntegration > 0 {
		highlights = append(highlights, fmt.Sprintf("%d unit and %d integration test files", a.CodeMetrics.TestCountUnit, a.CodeMetrics.TestCountIntegration))
	}
	if len(a.Tools) > 0 {
		highlights = append(highlights, "tools: "+strings.Join(topN(a.Tools, 5), ", "))
	}
	if len(a.Practices) > 0 {
		highlights = append(highlights, "practices: "+strings.Join(a.Practices, ", "))
	}
	if a.ContributionPct > 0 {
		highlights = append(highlights, fmt.Sprintf("%.0f%% of the project's commits", a.ContributionPct))
	}
	return highlights
}

func topN(items []string, n int) []string {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// generateLocal dispatches to a language-specific template generator, or
// the generic one when no variant exists for analysis.Language (spec
// §4.10 step 3). Deterministic: identical input always yields an
// identical, ordered bullet list.
func generateLocal(a domain.ProjectAnalysis, maxBullets int) []string {
	var bullets []string
	switch strings.ToLower(a.Language) {
	case "python":
		bullets = pythonBullets(a)
	case "javascript", "typescript":
		bullets = jsBullets(a)
	case "java":
		bullets = javaBullets(a)
	case "cpp", "c":
		bullets = cppBullets(a)
	}
	if len(bullets) == 0 {
		bullets = genericBullets(a)
	}

	bullets = clampBullets(bullets, maxBullets)
	if len(bullets) > 3 {
		return bullets
	}
	// Pad toward the 3-bullet floor for local generators,
	// using facts every analysis carries regardless of language.
	for _, extra := range genericBullets(a) {
		if len(bullets) >= 3 || len(bullets) >= maxBullets {
			break
		}
		if !containsBullet(bullets, extra) {
			bullets = append(bullets, extra)
		}
	}
	return clampBullets(bullets, maxBullets)
}

func containsBullet(bullets []string, b string) bool {
	for _, existing := range bullets {
		if existing == b {
			return true
		}
	}
	return false
}

func clampBullets(bullets []string, maxBullets int) []string {
	out := make([]string, 0, maxBullets)
	for _, b := range bullets {
		if len(b) > MaxBulletChars {
			b = b[:MaxBulletChars]
		}
		if !satisfiesInvariants(b) {
			continue
		}
		out = append(out, b)
		if len(out) == maxBullets {
			break
		}
	}
	return out
}

func genericBullets(a domain.ProjectAnalysis) []string {
	var out []string
	lang := a.Language
	if lang == "" {
		lang = "a mixed-language codebase"
	}
	if a.Framework != "" {
		out = append(out, fmt.Sprintf("Built %s using %s and %s", displayPath(a.ProjectPath), lang, a.Framework))
	} else {
		out = append(out, fmt.Sprintf("Developed %s in %s", displayPath(a.ProjectPath), lang))
	}
	if len(a.Tools) > 0 {
		out = append(out, fmt.Sprintf("Integrated %s across the project's tooling", strings.Join(topN(a.Tools, 4), ", ")))
	}
	if a.CodeMetrics.FileCount > 0 {
		out = append(out, fmt.Sprintf("Maintained %d files (%d lines of code) as %s", a.CodeMetrics.FileCount, a.CodeMetrics.TotalLOC, roleText(a.Role)))
	}
	return out
}

func pythonBullets(a domain.ProjectAnalysis) []string {
	var out []string
	fw := a.Framework
	if fw == "" {
		fw = "Python"
	}
	out = append(out, fmt.Sprintf("Developed %s, a %s application with %d modules and %d functions", displayPath(a.ProjectPath), fw, a.CodeMetrics.FileCount, a.CodeMetrics.FunctionCount))
	if density, ok := a.LanguageSpecific["type_hint_density"].(float64); ok && density > 0 {
		out = append(out, fmt.Sprintf("Improved maintainability by type-annotating %.0f%% of function signatures", density*100))
	}
	if async, ok := a.LanguageSpecific["async_function_count"].(int); ok && async > 0 {
		out = append(out, fmt.Sprintf("Implemented %d asynchronous functions for concurrent I/O", async))
	}
	if a.CodeMetrics.TestCountUnit+a.CodeMetrics.TestCountIntegration > 0 {
		out = append(out, fmt.Sprintf("Authored %d unit and %d integration tests", a.CodeMetrics.TestCountUnit, a.CodeMetrics.TestCountIntegration))
	}
	return out
}

func jsBullets(a domain.ProjectAnalysis) []string {
	var out []string
	fw := a.Framework
	if fw == "" {
		fw = capitalize(a.Language)
	}
	out = append(out, fmt.Sprintf("Built %s, a %s application spanning %d files and %d components/functions", displayPath(a.ProjectPath), fw, a.CodeMetrics.FileCount, a.CodeMetrics.FunctionCount))
	if frontend, ok := a.LanguageSpecific["frontend_framework_hint"].(string); ok && frontend != "" && frontend != "none" {
		out = append(out, fmt.Sprintf("Delivered user-facing features with %s", frontend))
	}
	if module, ok := a.LanguageSpecific["module_system"].(string); ok && module != "" && module != "unknown" {
		out = append(out, fmt.Sprintf("Structured the codebase around %s modules", module))
	}
	if uses, ok := a.LanguageSpecific["uses_async_await"].(bool); ok && uses {
		out = append(out, "Adopted async/await for non-blocking operations")
	}
	return out
}

func javaBullets(a domain.ProjectAnalysis) []string {
	var out []string
	out = append(out, fmt.Sprintf("Engineered %s, a Java application with %d classes and %d methods", displayPath(a.ProjectPath), a.CodeMetrics.ClassCount, a.CodeMetrics.FunctionCount))
	if oop, ok := a.LanguageSpecific["oop_score"].(float64); ok && oop > 0 {
		out = append(out, fmt.Sprintf("Applied object-oriented design principles (OOP score %.1f/10)", oop))
	}
	if patterns, ok := a.LanguageSpecific["design_pattern_hits"].([]string); ok && len(patterns) > 0 {
		out = append(out, fmt.Sprintf("Applied %s design patterns", strings.Join(topN(patterns, 3), ", ")))
	}
	return out
}

func cppBullets(a domain.ProjectAnalysis) []string {
	var out []string
	lang := "C++"
	if strings.EqualFold(a.Language, "c") {
		lang = "C"
	}
	out = append(out, fmt.Sprintf("Engineered %s in %s with %d functions across %d files", displayPath(a.ProjectPath), lang, a.CodeMetrics.FunctionCount, a.CodeMetrics.FileCount))
	if smart, ok := a.LanguageSpecific["smart_pointer_uses"].(int); ok && smart > 0 {
		out = append(out, "Adopted smart pointers for safe resource management")
	}
	if ds, ok := a.LanguageSpecific["data_structure_families"].([]string); ok && len(ds) > 0 {
		out = append(out, fmt.Sprintf("Applied %s data structures to core algorithms", strings.Join(topN(ds, 3), ", ")))
	}
	return out
}

func roleText(r domain.Role) string {
	switch r {
	case domain.RoleSoloDeveloper:
		return "sole developer"
	case domain.RoleLeadDeveloper:
		return "lead developer"
	case domain.RoleCoLead:
		return "co-lead"
	case domain.RoleContributor:
		return "a contributor"
	case domain.RoleMinorContributor:
		return "a minor contributor"
	default:
		return "a contributor"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func displayPath(p string) string {
	if p == "" {
		return "the project"
	}
	if idx := strings.LastIndexByte(p, '/'); idx >= 0 {
		return p[idx+1:]
	}
	return p
}
