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

// Package observability carries the ambient Prometheus metrics surface
// forward from
// kraklabs-cie's pkg/ingestion/metrics.go: one counter/histogram set per
// pipeline stage, registered once behind sync.Once, named with this
// domain's stage vocabulary instead of an ingestion-specific
// one.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/histogram the pipeline stages update. The
// zero value is usable: all fields are populated by Init before first use.
type Metrics struct {
	once sync.Once

	IngestArchives    prometheus.Counter
	IngestFiles       prometheus.Counter
	IngestBytesTotal  prometheus.Counter
	IngestErrors      prometheus.Counter
	MergeProjects     prometheus.Counter
	MergeFilesAdded   prometheus.Counter
	MergeFilesReused  prometheus.Counter
	MergeConflicts    prometheus.Counter
	DetectRuns        prometheus.Counter
	DetectUnresolved  prometheus.Counter
	SkillsRuns        prometheus.Counter
	SkillsAugmentFail prometheus.Counter
	AnalyseRuns       prometheus.Counter
	AnalyseFailures   prometheus.Counter
	AnalyseSkipped    prometheus.Counter
	GitRuns           prometheus.Counter
	GitUnavailable    prometheus.Counter
	ScoreBatches      prometheus.Counter
	BulletsAI         prometheus.Counter
	BulletsLocal      prometheus.Counter

	IngestDuration  prometheus.Histogram
	MergeDuration   prometheus.Histogram
	DetectDuration  prometheus.Histogram
	SkillsDuration  prometheus.Histogram
	AnalyseDuration prometheus.Histogram
	GitDuration     prometheus.Histogram
	ScoreDuration   prometheus.Histogram
	BulletsDuration prometheus.Histogram
	PipelineTotal   prometheus.Histogram
}

var buckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Default is the single process-wide Metrics instance.
var Default = &Metrics{}

// Init registers every metric with the default Prometheus registry.
// Idempotent: safe to call from multiple goroutines or multiple times.
func (m *Metrics) Init() {
	m.once.Do(func() {
		m.IngestArchives = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_ingest_archives_total", Help: "Archives ingested"})
		m.IngestFiles = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_ingest_files_total", Help: "Files extracted from ingested archives"})
		m.IngestBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_ingest_bytes_total", Help: "Uncompressed bytes extracted"})
		m.IngestErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_ingest_errors_total", Help: "Archive ingestion errors"})

		m.MergeProjects = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_merge_projects_total", Help: "Project candidates merged"})
		m.MergeFilesAdded = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_merge_files_added_total", Help: "New FileEntry rows written by merge"})
		m.MergeFilesReused = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_merge_files_reused_total", Help: "FileEntry rows deduped against existing content"})
		m.MergeConflicts = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_merge_conflicts_total", Help: "AMBIGUOUS_MAPPING/CONFLICT outcomes during merge"})

		m.DetectRuns = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_detect_runs_total", Help: "Language/framework detections performed"})
		m.DetectUnresolved = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_detect_unresolved_total", Help: "Detections where no language cleared the floor weight"})

		m.SkillsRuns = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_skills_runs_total", Help: "Skill extraction passes performed"})
		m.SkillsAugmentFail = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_skills_augment_failures_total", Help: "LLM skill augmentation calls that fell back to baseline"})

		m.AnalyseRuns = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_analyse_runs_total", Help: "Per-language analyser invocations"})
		m.AnalyseFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_analyse_failures_total", Help: "ANALYSER_FAILED occurrences, degraded to the generic analyser"})
		m.AnalyseSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_analyse_skipped_total", Help: "Projects skipped by the fingerprint gate"})

		m.GitRuns = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_git_runs_total", Help: "Git metrics extractions performed"})
		m.GitUnavailable = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_git_unavailable_total", Help: "Projects with no usable Git metadata"})

		m.ScoreBatches = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_score_batches_total", Help: "Scoring batches processed"})

		m.BulletsAI = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_bullets_ai_total", Help: "Bullet sets produced by the AI path"})
		m.BulletsLocal = prometheus.NewCounter(prometheus.CounterOpts{Name: "forgepath_bullets_local_total", Help: "Bullet sets produced by the local fallback"})

		m.IngestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "forgepath_ingest_seconds", Help: "Archive ingestion duration", Buckets: buckets})
		m.MergeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "forgepath_merge_seconds", Help: "Incremental merge duration", Buckets: buckets})
		m.DetectDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "forgepath_detect_seconds", Help: "Language detection duration", Buckets: buckets})
		m.SkillsDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "forgepath_skills_seconds", Help: "Skill extraction duration", Buckets: buckets})
		m.AnalyseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "forgepath_analyse_seconds", Help: "Code analyser duration", Buckets: buckets})
		m.GitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "forgepath_git_seconds", Help: "Git metrics extraction duration", Buckets: buckets})
		m.ScoreDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "forgepath_score_seconds", Help: "Batch scoring duration", Buckets: buckets})
		m.BulletsDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "forgepath_bullets_seconds", Help: "Bullet generation duration", Buckets: buckets})
		m.PipelineTotal = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "forgepath_pipeline_total_seconds", Help: "Total per-project analysis duration", Buckets: buckets})

		prometheus.MustRegister(
			m.IngestArchives, m.IngestFiles, m.IngestBytesTotal, m.IngestErrors,
			m.MergeProjects, m.MergeFilesAdded, m.MergeFilesReused, m.MergeConflicts,
			m.DetectRuns, m.DetectUnresolved,
			m.SkillsRuns, m.SkillsAugmentFail,
			m.AnalyseRuns, m.AnalyseFailures, m.AnalyseSkipped,
			m.GitRuns, m.GitUnavailable,
			m.ScoreBatches,
			m.BulletsAI, m.BulletsLocal,
			m.IngestDuration, m.MergeDuration, m.DetectDuration, m.SkillsDuration,
			m.AnalyseDuration, m.GitDuration, m.ScoreDuration, m.BulletsDuration, m.PipelineTotal,
		)
	})
}

// ObserveDuration records elapsed time since start on h. A nil Metrics
// (zero value, never Init'd) is never passed to this helper by callers
// that hold a reference to Default; it exists purely to keep call sites
// terse: `defer observability.ObserveDuration(m.AnalyseDuration, time.Now())`.
func ObserveDuration(h prometheus.Histogram, start time.Time) {
	if h == nil {
		return
	}
	h.Observe(time.Since(start).Seconds())
}
