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

// Package skills extracts a project's tool and practice skills: a baseline
// pass that always runs offline, optionally augmented by an LLM call gated
// by pkg/consent. The augmentation retry/backoff follows kraklabs-cie's
// pkg/ingestion/embedding.go (classified retryable errors, exponential
// backoff with full jitter); on any augmentation failure the baseline set
// is returned unchanged.
package skills

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/gitlog"
	"github.com/forgepath/core/pkg/llm"
)

// RetryConfig mirrors a typical embedding retry shape: bounded retries
// with exponential backoff and full jitter.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig matches typical embedding generator defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialBackoff: 200 * time.Millisecond, MaxBackoff: 2 * time.Second, Multiplier: 2.0}
}

// toolSignature pairs a detection pattern with the tool skill it implies.
type toolSignature struct {
	pattern string
	tool    string
}

// Matched against manifest/lockfile/CI/container filenames and contents,
// and against import statements extracted from source files.
var toolSignatures = []toolSignature{
	{"package.json", "Node.js"},
	{"requirements.txt", "pip"},
	{"Pipfile", "pipenv"},
	{"pyproject.toml", "Poetry"},
	{"go.mod", "Go Modules"},
	{"Cargo.toml", "Cargo"},
	{"pom.xml", "Maven"},
	{"build.gradle", "Gradle"},
	{"Dockerfile", "Docker"},
	{"docker-compose.yml", "Docker Compose"},
	{".github/workflows", "GitHub Actions"},
	{".gitlab-ci.yml", "GitLab CI"},
	{"Jenkinsfile", "Jenkins"},
	{".circleci/config.yml", "CircleCI"},
	{"terraform", "Terraform"},
	{"\"react\"", "React"},
	{"\"vue\"", "Vue"},
	{"\"express\"", "Express"},
	{"\"django\"", "Django"},
	{"\"flask\"", "Flask"},
	{"\"fastapi\"", "FastAPI"},
	{"\"pytest\"", "pytest"},
	{"\"jest\"", "Jest"},
	{"junit", "JUnit"},
	{"\"postgres\"", "PostgreSQL"},
	{"\"redis\"", "Redis"},
	{"\"kubernetes\"", "Kubernetes"},
	{"\"aws-sdk\"", "AWS SDK"},
	{"\"@grpc/grpc-js\"", "gRPC"},
	{"grpc", "gRPC"},
}

// FileInput is the minimal per-file view the baseline scanner needs.
type FileInput struct {
	RelativePath string
	Content      string // empty for binary/media files, or when unavailable
}

// BaselineInput bundles everything the offline pass needs.
type BaselineInput struct {
	Files   []FileInput
	Commits []gitlog.Commit
}

// Result is the deduplicated, sorted skill output.
type Result struct {
	Tools     []string
	Practices []string
}

// ExtractBaseline runs the always-on, offline detection pass.
func ExtractBaseline(input BaselineInput) Result {
	toolSet := make(map[string]bool)

	for _, f := range input.Files {
		haystack := f.RelativePath
		if f.Content != "" {
			haystack += "\n" + f.Content
		}
		for _, sig := range toolSignatures {
			if strings.Contains(strings.ToLower(haystack), strings.ToLower(sig.pattern)) {
				toolSet[sig.tool] = true
			}
		}
	}

	practiceSet := make(map[string]bool)
	if hasTestDirectory(input.Files) {
		practiceSet["Automated testing"] = true
	}
	if hasAny(input.Files, []string{".github/workflows", ".gitlab-ci.yml", "Jenkinsfile", ".circleci/config.yml", ".travis.yml"}) {
		practiceSet["Continuous integration"] = true
	}
	if hasAny(input.Files, []string{".eslintrc", ".prettierrc", ".flake8", ".golangci.yml", "pylintrc", "checkstyle.xml"}) {
		practiceSet["Linting / formatting"] = true
	}
	if conventionalCommitRatio(input.Commits) >= 0.3 {
		practiceSet["Conventional commits"] = true
	}
	if documentationDensity(input.Files) >= 0.05 {
		practiceSet["Documentation"] = true
	}
	if hasCodeReviewEvidence(input.Commits) {
		practiceSet["Code review"] = true
	}

	return Result{Tools: sortedKeys(toolSet), Practices: sortedKeys(practiceSet)}
}

func hasTestDirectory(files []FileInput) bool {
	for _, f := range files {
		p := strings.ToLower(f.RelativePath)
		if strings.Contains(p, "/test/") || strings.Contains(p, "/tests/") ||
			strings.Contains(p, "/__tests__/") || strings.Contains(p, "_test.") ||
			strings.Contains(p, ".test.") || strings.Contains(p, ".spec.") {
			return true
		}
	}
	return false
}

func hasAny(files []FileInput, substrings []string) bool {
	for _, f := range files {
		p := strings.ToLower(f.RelativePath)
		for _, s := range substrings {
			if strings.Contains(p, strings.ToLower(s)) {
				return true
			}
		}
	}
	return false
}

var conventionalCommitPrefixes = []string{
	"feat:", "feat(", "fix:", "fix(", "chore:", "chore(", "docs:", "docs(",
	"refactor:", "refactor(", "test:", "test(", "build:", "build(",
	"ci:", "ci(", "perf:", "perf(", "style:", "style(",
}

func conventionalCommitRatio(commits []gitlog.Commit) float64 {
	if len(commits) == 0 {
		return 0
	}
	matched := 0
	for _, c := range commits {
		subject := strings.ToLower(c.Subject)
		for _, p := range conventionalCommitPrefixes {
			if strings.HasPrefix(subject, p) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(commits))
}

func documentationDensity(files []FileInput) float64 {
	if len(files) == 0 {
		return 0
	}
	docCount := 0
	for _, f := range files {
		ext := strings.ToLower(pathExt(f.RelativePath))
		if ext == ".md" || ext == ".rst" || ext == ".adoc" || ext == ".txt" {
			docCount++
		}
	}
	return float64(docCount) / float64(len(files))
}

func hasCodeReviewEvidence(commits []gitlog.Commit) bool {
	for _, c := range commits {
		if !c.IsMerge {
			continue
		}
		lower := strings.ToLower(c.Subject)
		if strings.Contains(lower, "approved") || strings.Contains(lower, "reviewed-by") ||
			strings.Contains(lower, "pull request") || strings.Contains(lower, "merge pull request") {
			return true
		}
	}
	return false
}

func pathExt(relativePath string) string {
	idx := strings.LastIndexByte(relativePath, '/')
	name := relativePath
	if idx >= 0 {
		name = relativePath[idx+1:]
	}
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return ""
	}
	return name[dot:]
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Augmenter calls an LLM to propose additional skills, merging them into a
// baseline Result. Failures of any kind (timeout, malformed JSON, empty
// response) discard the augmentation silently and return the baseline.
type Augmenter struct {
	completer llm.Completer
	model     string
	logger    *slog.Logger
	retry     RetryConfig
}

// NewAugmenter builds an Augmenter. logger may be nil (uses slog.Default()).
func NewAugmenter(completer llm.Completer, model string, logger *slog.Logger) *Augmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Augmenter{completer: completer, model: model, logger: logger, retry: DefaultRetryConfig()}
}

// Augment sends a schema-constrained prompt built from the baseline and
// merges the LLM's proposed skills into it. On any failure it returns the
// unmodified baseline.
func (a *Augmenter) Augment(ctx context.Context, baseline Result, prompt llm.SkillPrompt) Result {
	raw, err := a.completeWithRetry(ctx, prompt.Build())
	if err != nil {
		a.logger.Warn("skills.augment.failed", "err", err)
		return baseline
	}

	arr, ok := llm.ExtractJSONArray(raw)
	if !ok {
		a.logger.Warn("skills.augment.malformed_response")
		return baseline
	}

	names, err := parseSkillNames(arr)
	if err != nil || len(names) == 0 {
		a.logger.Warn("skills.augment.parse_failed", "err", err)
		return baseline
	}

	toolSet := make(map[string]bool)
	for _, t := range baseline.Tools {
		toolSet[t] = true
	}
	for _, n := range names {
		toolSet[n] = true
	}

	return Result{Tools: sortedKeys(toolSet), Practices: baseline.Practices}
}

func (a *Augmenter) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	var result string
	var err error

	for attempt := 0; attempt < a.retry.MaxRetries; attempt++ {
		deadline := time.Now().Add(30 * time.Second)
		result, err = a.completer.Complete(ctx, prompt, llm.SystemPrompts.SkillExtraction, deadline)
		if err == nil {
			return result, nil
		}
		if !isRetryableError(err) || attempt == a.retry.MaxRetries-1 {
			return "", err
		}
		sleep := computeBackoffWithJitter(a.retry.InitialBackoff, attempt, a.retry.Multiplier, a.retry.MaxBackoff)
		a.logger.Warn("skills.augment.retry", "attempt", attempt+1, "sleep_ms", sleep.Milliseconds(), "err", err)
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

func parseSkillNames(jsonArray string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(jsonArray), &names); err != nil {
		return nil, err
	}
	clean := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			clean = append(clean, n)
		}
	}
	return clean, nil
}

// ToSkills converts a baseline/augmented Result into domain.Skill rows.
func (r Result) ToSkills() []domain.Skill {
	out := make([]domain.Skill, 0, len(r.Tools)+len(r.Practices))
	for _, t := range r.Tools {
		out = append(out, domain.Skill{Name: t, Kind: domain.SkillKindTool})
	}
	for _, p := range r.Practices {
		out = append(out, domain.Skill{Name: p, Kind: domain.SkillKindPractice})
	}
	return out
}
