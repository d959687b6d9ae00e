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

package skills

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgepath/core/pkg/gitlog"
	"github.com/forgepath/core/pkg/llm"
)

func TestExtractBaselineDetectsToolsAndPractices(t *testing.T) {
	input := BaselineInput{
		Files: []FileInput{
			{RelativePath: "package.json", Content: `{"dependencies":{"react":"^18.0.0","jest":"^29.0.0"}}`},
			{RelativePath: "src/app.test.js", Content: "test('renders', () => {})"},
			{RelativePath: ".github/workflows/ci.yml", Content: "name: CI"},
			{RelativePath: "README.md", Content: "# Demo project with docs"},
		},
		Commits: []gitlog.Commit{
			{Subject: "feat: add login page"},
			{Subject: "fix: crash on empty input"},
			{Subject: "random change"},
		},
	}
	result := ExtractBaseline(input)

	assert.Contains(t, result.Tools, "Node.js")
	assert.Contains(t, result.Tools, "React")
	assert.Contains(t, result.Tools, "Jest")
	assert.Contains(t, result.Practices, "Automated testing")
	assert.Contains(t, result.Practices, "Continuous integration")
}

func TestExtractBaselineIsSortedAndDeduped(t *testing.T) {
	input := BaselineInput{
		Files: []FileInput{
			{RelativePath: "go.mod", Content: "module demo"},
			{RelativePath: "cmd/go.mod", Content: "module demo2"}, // same tool, no duplicate
		},
	}
	result := ExtractBaseline(input)
	assert.Equal(t, []string{"Go Modules"}, result.Tools)
}

func TestConventionalCommitRatioGatesPractice(t *testing.T) {
	below := BaselineInput{Commits: []gitlog.Commit{{Subject: "feat: x"}, {Subject: "misc"}, {Subject: "misc2"}, {Subject: "misc3"}}}
	assert.NotContains(t, ExtractBaseline(below).Practices, "Conventional commits")

	above := BaselineInput{Commits: []gitlog.Commit{{Subject: "feat: x"}, {Subject: "fix: y"}, {Subject: "misc"}}}
	assert.Contains(t, ExtractBaseline(above).Practices, "Conventional commits")
}

func TestCodeReviewEvidenceFromMergeCommits(t *testing.T) {
	input := BaselineInput{Commits: []gitlog.Commit{
		{Subject: "Merge pull request #42 from feature/x", IsMerge: true},
	}}
	assert.Contains(t, ExtractBaseline(input).Practices, "Code review")
}

func TestToSkillsSplitsKindByBucket(t *testing.T) {
	r := Result{Tools: []string{"Go Modules"}, Practices: []string{"Automated testing"}}
	skills := r.ToSkills()
	require.Len(t, skills, 2)
	kinds := map[string]string{}
	for _, s := range skills {
		kinds[s.Name] = string(s.Kind)
	}
	assert.Equal(t, "tool", kinds["Go Modules"])
	assert.Equal(t, "practice", kinds["Automated testing"])
}

type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt, schemaHint string, deadline time.Time) (string, error) {
	i := f.calls
	f.calls++
	var resp string
	var err error
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2}
}

// TestAugmentMergesNewSkillsIntoBaseline covers the augmentation path.
func TestAugmentMergesNewSkillsIntoBaseline(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`Sure! Here are the skills: ["concurrent programming", "REST API design"]`}}
	aug := NewAugmenter(completer, "test-model", nil)
	aug.retry = fastRetry()

	baseline := Result{Tools: []string{"Go Modules"}, Practices: []string{"Automated testing"}}
	result := aug.Augment(context.Background(), baseline, llm.SkillPrompt{Languages: []string{"go"}, BaselineSet: baseline.Tools})

	assert.Contains(t, result.Tools, "Go Modules")
	assert.Contains(t, result.Tools, "concurrent programming")
	assert.Contains(t, result.Tools, "REST API design")
	assert.Equal(t, baseline.Practices, result.Practices)
}

// TestAugmentFailsSilentlyOnMalformedResponse covers the "silent discard"
// semantics: any augmentation failure returns the baseline unchanged.
func TestAugmentFailsSilentlyOnMalformedResponse(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"not json at all, no brackets here"}}
	aug := NewAugmenter(completer, "test-model", nil)
	aug.retry = fastRetry()

	baseline := Result{Tools: []string{"Go Modules"}}
	result := aug.Augment(context.Background(), baseline, llm.SkillPrompt{})
	assert.Equal(t, baseline, result)
}

func TestAugmentFailsSilentlyOnNonRetryableError(t *testing.T) {
	completer := &fakeCompleter{errs: []error{errors.New("invalid api key")}}
	aug := NewAugmenter(completer, "test-model", nil)
	aug.retry = fastRetry()

	baseline := Result{Tools: []string{"Go Modules"}}
	result := aug.Augment(context.Background(), baseline, llm.SkillPrompt{})
	assert.Equal(t, baseline, result)
	assert.Equal(t, 1, completer.calls, "non-retryable errors must not be retried")
}

func TestAugmentRetriesRetryableErrorsThenSucceeds(t *testing.T) {
	completer := &fakeCompleter{
		errs:      []error{errors.New("connection reset"), nil},
		responses: []string{"", `["docker orchestration"]`},
	}
	aug := NewAugmenter(completer, "test-model", nil)
	aug.retry = fastRetry()

	baseline := Result{Tools: []string{"Go Modules"}}
	result := aug.Augment(context.Background(), baseline, llm.SkillPrompt{})
	assert.Contains(t, result.Tools, "docker orchestration")
	assert.Equal(t, 2, completer.calls)
}

func TestAugmentGivesUpAfterMaxRetries(t *testing.T) {
	completer := &fakeCompleter{errs: []error{
		errors.New("timeout"), errors.New("timeout"),
	}}
	aug := NewAugmenter(completer, "test-model", nil)
	aug.retry = fastRetry()

	baseline := Result{Tools: []string{"Go Modules"}}
	result := aug.Augment(context.Background(), baseline, llm.SkillPrompt{})
	assert.Equal(t, baseline, result)
	assert.Equal(t, fastRetry().MaxRetries, completer.calls)
}
