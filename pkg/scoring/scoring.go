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

// Package scoring computes the composite importance score for a batch of
// projects being analysed together and assigns stable importance ranks
//. Normalisation is always relative to the current batch, so
// Score/Rank must be called with every project considered in one call.
// Grounded on kraklabs-cie's "everything sorted before it's hashed or
// reported" discipline (pkg/ingestion/delta.go, ids.go): the ranker never
// depends on map iteration order.
package scoring

import (
	"sort"

	"github.com/forgepath/core/pkg/domain"
)

// Input is the minimal per-project view the scorer needs.
type Input struct {
	ProjectID           string
	ContributionPct     float64 // 0 when Git metrics are absent; solo projects use 100
	SkillCount          int     // |tools| + |practices|
	DurationDays        float64
	FileCount           int
	AnalyserDegraded    bool   // true when ANALYSER_FAILED left this project's signals incomplete
	DegradedDiagnostic  string // text recorded on ScoreBreakdown.Diagnostic when AnalyserDegraded
	LastCommit          int64  // unix seconds, 0 if unknown; used only for rank tie-break (b)
	ProjectName         string // used for rank tie-break (c)
}

// Output pairs a project ID with its computed score, breakdown, and final
// importance rank.
type Output struct {
	ProjectID      string
	Score          float64
	ScoreBreakdown domain.ScoreBreakdown
	ImportanceRank int
}

// normalise performs batch-relative min-max scaling into [0, 1]. A batch
// where every value is equal (including a batch of one) maps every value
// to 1, following the general "don't let a degenerate batch zero
// everything out" posture.
func normalise(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, v := range values {
		out[i] = (v - min) / (max - min)
	}
	return out
}

// Score computes each project's composite importance score ∈ [0, 100] and
// assigns importance_rank starting at 1, breaking ties by (a) higher
// file_count, (b) more recent last_commit, (c) lexicographic project name
//. Deterministic given identical inputs.
func Score(inputs []Input, weights domain.ScoreWeights) []Output {
	n := len(inputs)
	if n == 0 {
		return nil
	}

	contribution := make([]float64, n)
	diversity := make([]float64, n)
	duration := make([]float64, n)
	fileCount := make([]float64, n)
	for i, in := range inputs {
		contribution[i] = in.ContributionPct
		diversity[i] = float64(in.SkillCount)
		duration[i] = in.DurationDays
		fileCount[i] = float64(in.FileCount)
	}

	nContribution := normalise(contribution)
	nDiversity := normalise(diversity)
	nDuration := normalise(duration)
	nFileCount := normalise(fileCount)

	// Weights need not sum to 1; normalise them here so the
	// composite score always lands in [0, 100] regardless of how the
	// persisted weights were entered.
	weightSum := weights.Contribution + weights.Diversity + weights.Duration + weights.FileCount
	if weightSum <= 0 {
		weightSum = 1
	}

	outputs := make([]Output, n)
	for i, in := range inputs {
		breakdown := domain.ScoreBreakdown{
			Contribution: weights.Contribution / weightSum * nContribution[i],
			Diversity:    weights.Diversity / weightSum * nDiversity[i],
			Duration:     weights.Duration / weightSum * nDuration[i],
			FileCount:    weights.FileCount / weightSum * nFileCount[i],
		}
		if in.AnalyserDegraded {
			breakdown.Diagnostic = in.DegradedDiagnostic
		}
		score := (breakdown.Contribution + breakdown.Diversity + breakdown.Duration + breakdown.FileCount) * 100
		outputs[i] = Output{ProjectID: in.ProjectID, Score: score, ScoreBreakdown: breakdown}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if outputs[ia].Score != outputs[ib].Score {
			return outputs[ia].Score > outputs[ib].Score
		}
		if inputs[ia].FileCount != inputs[ib].FileCount {
			return inputs[ia].FileCount > inputs[ib].FileCount
		}
		if inputs[ia].LastCommit != inputs[ib].LastCommit {
			return inputs[ia].LastCommit > inputs[ib].LastCommit
		}
		return inputs[ia].ProjectName < inputs[ib].ProjectName
	})

	for rank, idx := range order {
		outputs[idx].ImportanceRank = rank + 1
	}

	return outputs
}
