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

// Package domain holds the language-neutral data model records shared by
// every pipeline stage: Upload, Project, ArtifactSource, ContentObject,
// FileEntry, ProjectFingerprint, Skill, CodeAnalysis, ProjectAnalysis,
// ConsentRecord, and GeneratedItem. Nothing in this package does I/O; it is
// the vocabulary pkg/repository, pkg/pipeline and friends share.
package domain

import "time"

// Role is the fixed contributor-role taxonomy from the Git metrics and role
// detector. Storage uses these exact strings (the wire contract).
type Role string

const (
	RoleSoloDeveloper    Role = "Solo Developer"
	RoleLeadDeveloper    Role = "Lead Developer"
	RoleCoLead           Role = "Co-Lead"
	RoleContributor      Role = "Contributor"
	RoleMinorContributor Role = "Minor Contributor"
	RoleUnknown          Role = "Unknown"
)

// SkillKind distinguishes a detected tool from a detected practice.
type SkillKind string

const (
	SkillKindTool     SkillKind = "tool"
	SkillKindPractice SkillKind = "practice"
)

// BulletSource records which stage of the C10 fallback chain produced a
// project's résumé bullets.
type BulletSource string

const (
	BulletSourceAI    BulletSource = "ai"
	BulletSourceLocal BulletSource = "local"
)

// MimeCategory is the coarse content classification C1 assigns to a
// ContentObject: file-count and type classification only, never deep media
// analysis.
type MimeCategory string

const (
	MimeCategoryCode   MimeCategory = "code"
	MimeCategoryDoc    MimeCategory = "doc"
	MimeCategoryDesign MimeCategory = "design"
	MimeCategoryMedia  MimeCategory = "media"
	MimeCategoryOther  MimeCategory = "other"
)

// Upload is an immutable record of one archive ingest. Created by C2, never
// mutated; deleted only by administrative cleanup.
type Upload struct {
	ID               string
	OriginalFilename string
	ByteSize         int64
	IngestedAt       time.Time
	ContentRoot      string // path inside the archive this upload's files were rooted at
}

// Project is a discovered logical unit of work. Created by C2 or by
// incremental merge in C3; mutated by C9 (analysis outcomes) and by
// external editors via the repository.
//
// Invariant: Framework is set only when Language is set; Language may be
// set with Framework empty.
type Project struct {
	ID                string
	DisplayName       string
	RelativePath      string
	Language          string
	Framework         string
	StartDate         time.Time
	EndDate           time.Time
	IsCollaborative   bool
	Role              Role
	ContributionPct   float64
	RoleJustification string
	ImportanceRank    int
	ImportanceScore   float64
	Showcase          bool
	ThumbnailRef      string
	LastFingerprint   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ArtifactSource is the (Project x Upload) many-to-many edge, created only
// by C3. It maintains upload lineage for a project.
type ArtifactSource struct {
	ProjectID     string
	UploadID      string
	ArtifactCount int
}

// ContentObject is an immutable file payload addressed by its content hash
// (SHA-256, lowercase hex). Two inserts of equal hash are idempotent;
// content is never overwritten.
type ContentObject struct {
	Hash         string
	Size         int64
	MimeCategory MimeCategory
}

// FileEntry maps (project_id, relative_path) to a content hash, representing
// the project's current file set after all merges. relative_path is unique
// per project.
type FileEntry struct {
	ProjectID    string
	RelativePath string
	ContentHash  string
}

// Skill is a unique (name, kind) pair. Attached to projects via the
// repository's ProjectSkill edge.
type Skill struct {
	Name string
	Kind SkillKind
}

// CodeMetrics is the per-(project, language) structural metrics blob
// produced by a C6 analyser variant.
type CodeMetrics struct {
	FileCount            int
	TotalLOC             int
	CommentLOC           int
	FunctionCount        int
	ClassCount           int
	TestCountUnit        int
	TestCountIntegration int
}

// CodeAnalysis is the most-recent C6 analyser output for one
// (project, language) pair. A project may have one per detected language;
// only the latest per language is authoritative.
type CodeAnalysis struct {
	ProjectID   string
	Language    string
	Metrics     CodeMetrics
	Features    map[string]any
	SummaryText string
	AnalyzedAt  time.Time
}

// GitMetrics summarizes a project's version-control history as extracted by
// C7. A project with damaged or absent Git metadata has a nil *GitMetrics;
// downstream consumers (scorer, role detector) must tolerate that.
type GitMetrics struct {
	CommitCount int
	AuthorCount int
	FirstCommit time.Time
	LastCommit  time.Time
	UserCommits int
}

// ScoreBreakdown is the four weighted components contributing to a
// project's importance score (see pkg/scoring).
type ScoreBreakdown struct {
	Contribution float64
	Diversity    float64
	Duration     float64
	FileCount    float64
	Diagnostic   string // set when a component's inputs were degraded (e.g. ANALYSER_FAILED)
}

// ProjectAnalysis is the canonical, transient, in-memory aggregated view
// assembled by C9 and passed to C10. Field names:
// downstream consumers rely on the JSON shape this type marshals to.
type ProjectAnalysis struct {
	ProjectPath        string           `json:"project_path"`
	Language           string           `json:"language"`
	Framework          string           `json:"framework"`
	Tools              []string         `json:"tools"`
	Practices          []string         `json:"practices"`
	CodeMetrics        CodeMetrics      `json:"code_metrics"`
	LanguageSpecific   map[string]any   `json:"language_specific"`
	Git                *GitMetricsView  `json:"git"`
	ContributionPct    float64          `json:"contribution_pct"`
	Role               Role             `json:"role"`
	RoleJustification  string           `json:"role_justification"`
	IsCollaborative    bool             `json:"is_collaborative"`
	Score              float64          `json:"score"`
	ScoreBreakdown     ScoreBreakdown   `json:"score_breakdown"`
	ResumeBullets      []string         `json:"resume_bullets"`
	ResumeBulletSource BulletSource     `json:"resume_bullet_source"`
}

// GitMetricsView is the JSON-facing shape of GitMetrics embedded in a
// ProjectAnalysis; nil when the project has no usable Git history.
type GitMetricsView struct {
	CommitCount int       `json:"commit_count"`
	AuthorCount int       `json:"author_count"`
	FirstCommit time.Time `json:"first_commit"`
	LastCommit  time.Time `json:"last_commit"`
	UserCommits int       `json:"user_commits"`
}

// NewGitMetricsView converts a GitMetrics into its JSON-facing view, or
// returns nil for a nil input.
func NewGitMetricsView(m *GitMetrics) *GitMetricsView {
	if m == nil {
		return nil
	}
	return &GitMetricsView{
		CommitCount: m.CommitCount,
		AuthorCount: m.AuthorCount,
		FirstCommit: m.FirstCommit,
		LastCommit:  m.LastCommit,
		UserCommits: m.UserCommits,
	}
}

// ConsentRecord is the latest user policy for external services. The most
// recent record upserted wins; absence of a record is treated as deny.
type ConsentRecord struct {
	AllowLLM       bool
	AllowedModels  []string
	IgnorePatterns []string
	UpdatedAt      time.Time
}

// GeneratedItem is the unified row for any downstream artefact (portfolio
// item, résumé bullet set, ...) keyed by Kind, read-only to the core and
// written only by C10.
type GeneratedItem struct {
	Kind      string
	ProjectID string
	Payload   []byte // JSON-encoded
	UpdatedAt time.Time
}

// ScoreWeights are the four non-negative reals configuring C8. They need
// not sum to 1; the scorer normalises internally.
type ScoreWeights struct {
	Contribution float64
	Diversity    float64
	Duration     float64
	FileCount    float64
}

// DefaultScoreWeights returns the default weighting.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Contribution: 0.35,
		Diversity:    0.25,
		Duration:     0.20,
		FileCount:    0.20,
	}
}
