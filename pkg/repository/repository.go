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

// Package repository defines the persistence contract the pipeline core
// consumes. The core never embeds a concrete database; every
// mutation and lookup goes through these interfaces, grounded on
// kraklabs-cie's pkg/storage.Backend shape (Query/Execute/Close generalized
// to named, typed methods per entity).
package repository

import (
	"context"
	"time"

	"github.com/forgepath/core/pkg/domain"
)

// RerankEntry pairs a project ID with its desired importance rank.
type RerankEntry struct {
	ProjectID string
	Rank      int
}

// ProjectRepository is the sole writer of Project rows.
type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) error
	Get(ctx context.Context, id string) (*domain.Project, error)
	GetByPath(ctx context.Context, relativePath string) (*domain.Project, error)
	Update(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*domain.Project, error)

	// Rerank applies a full set of (project_id, rank) pairs atomically,
	// after a uniqueness pre-check: the resulting rank set must
	// be exactly {1..n} with no duplicates.
	Rerank(ctx context.Context, entries []RerankEntry) error

	SetScoreConfig(ctx context.Context, weights domain.ScoreWeights) error
	GetScoreConfig(ctx context.Context) (domain.ScoreWeights, error)
}

// FileRepository owns ContentObject and FileEntry persistence.
type FileRepository interface {
	PutContentObject(ctx context.Context, obj *domain.ContentObject) error
	GetContentObject(ctx context.Context, hash string) (*domain.ContentObject, error)

	UpsertFileEntry(ctx context.Context, f *domain.FileEntry) error
	DeleteFileEntry(ctx context.Context, projectID, relativePath string) error
	ListFileEntries(ctx context.Context, projectID string) ([]*domain.FileEntry, error)
	GetFileEntry(ctx context.Context, projectID, relativePath string) (*domain.FileEntry, error)

	CreateUpload(ctx context.Context, u *domain.Upload) error
	GetUpload(ctx context.Context, id string) (*domain.Upload, error)
	ListUploads(ctx context.Context, projectID string) ([]*domain.Upload, error)

	UpsertArtifactSource(ctx context.Context, a *domain.ArtifactSource) error
	ListArtifactSources(ctx context.Context, projectID string) ([]*domain.ArtifactSource, error)
}

// SkillRepository upserts Skill rows and maintains ProjectSkill edges.
type SkillRepository interface {
	UpsertSkill(ctx context.Context, s domain.Skill) error

	// SetProjectSkills replaces the full desired skill set for a project by
	// set-difference: refresh ProjectSkill edges by set-difference, never
	// truncating blindly.
	SetProjectSkills(ctx context.Context, projectID string, skills []domain.Skill) error
	ListProjectSkills(ctx context.Context, projectID string) ([]domain.Skill, error)
}

// AnalysisRepository upserts the latest CodeAnalysis per (project, language).
type AnalysisRepository interface {
	UpsertCodeAnalysis(ctx context.Context, a *domain.CodeAnalysis) error
	ListCodeAnalyses(ctx context.Context, projectID string) ([]*domain.CodeAnalysis, error)
	DeleteByProject(ctx context.Context, projectID string) error
}

// ConsentRepository reads/writes the latest ConsentRecord. Absence of a
// per-user record falls back to a global default; absence of
// both is treated as deny by pkg/consent.
type ConsentRepository interface {
	UpsertConsent(ctx context.Context, userID string, c *domain.ConsentRecord) error
	GetConsent(ctx context.Context, userID string) (*domain.ConsentRecord, error)
	GetGlobalConsent(ctx context.Context) (*domain.ConsentRecord, error)
}

// GeneratedItemRepository is written only by C10 and read-only to the rest
// of the core.
type GeneratedItemRepository interface {
	UpsertGeneratedItem(ctx context.Context, item *domain.GeneratedItem) error
	GetGeneratedItem(ctx context.Context, kind, projectID string) (*domain.GeneratedItem, error)
	ListGeneratedItemsByKind(ctx context.Context, kind string) ([]*domain.GeneratedItem, error)
}

// FingerprintRepository tracks the last-analysed fingerprint per project so
// C9 can implement its fingerprint skip-gate.
type FingerprintRepository interface {
	GetLastFingerprint(ctx context.Context, projectID string) (string, bool, error)
	SetLastFingerprint(ctx context.Context, projectID, fingerprint string, at time.Time) error
}

// Repository bundles every persistence surface the pipeline depends on. A
// concrete implementation (e.g. pkg/repository/memory) satisfies all seven;
// callers that only need a subset should depend on the narrower interface.
type Repository interface {
	ProjectRepository
	FileRepository
	SkillRepository
	AnalysisRepository
	ConsentRepository
	GeneratedItemRepository
	FingerprintRepository
}

// ErrNotFound is returned by Get-style methods when the entity does not
// exist. Callers typically wrap this into an errors.PipelineError with
// Kind NOT_FOUND at the component boundary.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "repository: not found" }
