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

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgepath/core/pkg/domain"
)

// TestRankUniqueness covers the rank-uniqueness property: after
// scoring, importance_rank is exactly {1..n} with no duplicates.
func TestRankUniqueness(t *testing.T) {
	inputs := []Input{
		{ProjectID: "a", ContributionPct: 80, SkillCount: 5, DurationDays: 100, FileCount: 20},
		{ProjectID: "b", ContributionPct: 40, SkillCount: 2, DurationDays: 10, FileCount: 5},
		{ProjectID: "c", ContributionPct: 100, SkillCount: 1, DurationDays: 1, FileCount: 1},
	}
	outputs := Score(inputs, domain.DefaultScoreWeights())

	seen := make(map[int]bool)
	for _, o := range outputs {
		assert.False(t, seen[o.ImportanceRank], "duplicate rank %d", o.ImportanceRank)
		seen[o.ImportanceRank] = true
	}
	for r := 1; r <= len(inputs); r++ {
		assert.True(t, seen[r], "rank %d missing", r)
	}
}

func TestScoreInRangeRegardlessOfWeightSum(t *testing.T) {
	inputs := []Input{
		{ProjectID: "a", ContributionPct: 80, SkillCount: 5, DurationDays: 100, FileCount: 20},
		{ProjectID: "b", ContributionPct: 10, SkillCount: 1, DurationDays: 5, FileCount: 2},
	}
	// weights that sum to far more than 1 - weights need
	// not sum to 1 and the scorer must normalise internally.
	weights := domain.ScoreWeights{Contribution: 3, Diversity: 3, Duration: 3, FileCount: 3}
	outputs := Score(inputs, weights)
	for _, o := range outputs {
		assert.GreaterOrEqual(t, o.Score, 0.0)
		assert.LessOrEqual(t, o.Score, 100.0)
	}
}

func TestDegenerateSingleProjectBatchScoresMax(t *testing.T) {
	inputs := []Input{{ProjectID: "solo", ContributionPct: 100, SkillCount: 3, DurationDays: 30, FileCount: 10}}
	outputs := Score(inputs, domain.DefaultScoreWeights())
	assert.InDelta(t, 100.0, outputs[0].Score, 0.01)
	assert.Equal(t, 1, outputs[0].ImportanceRank)
}

// TestTieBreaks covers the tie-break order: equal score resolves
// by (a) higher file_count, (b) more recent last_commit, (c) project name.
func TestTieBreaksByFileCountThenRecencyThenName(t *testing.T) {
	inputs := []Input{
		{ProjectID: "zeta", ContributionPct: 50, SkillCount: 2, DurationDays: 10, FileCount: 10, LastCommit: 100, ProjectName: "zeta"},
		{ProjectID: "alpha", ContributionPct: 50, SkillCount: 2, DurationDays: 10, FileCount: 10, LastCommit: 100, ProjectName: "alpha"},
	}
	outputs := Score(inputs, domain.DefaultScoreWeights())
	byID := map[string]Output{}
	for _, o := range outputs {
		byID[o.ProjectID] = o
	}
	// identical score/file_count/last_commit -> lexicographic name wins
	assert.Equal(t, 1, byID["alpha"].ImportanceRank)
	assert.Equal(t, 2, byID["zeta"].ImportanceRank)
}

func TestEmptyBatchReturnsNil(t *testing.T) {
	assert.Nil(t, Score(nil, domain.DefaultScoreWeights()))
}

func TestDegradedDiagnosticIsRecorded(t *testing.T) {
	inputs := []Input{
		{ProjectID: "a", ContributionPct: 50, SkillCount: 1, DurationDays: 1, FileCount: 1, AnalyserDegraded: true, DegradedDiagnostic: "ANALYSER_FAILED: parse error"},
		{ProjectID: "b", ContributionPct: 50, SkillCount: 1, DurationDays: 1, FileCount: 1},
	}
	outputs := Score(inputs, domain.DefaultScoreWeights())
	byID := map[string]Output{}
	for _, o := range outputs {
		byID[o.ProjectID] = o
	}
	assert.Equal(t, "ANALYSER_FAILED: parse error", byID["a"].ScoreBreakdown.Diagnostic)
	assert.Empty(t, byID["b"].ScoreBreakdown.Diagnostic)
}
