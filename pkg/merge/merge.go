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

// Package merge implements the incremental merge engine: it
// associates the project candidates discovered by pkg/archive with either a
// brand-new Project or an existing one named in a caller-supplied
// project_mapping, and dedupes incoming files against the project's current
// FileEntry set by content hash. Grounded on kraklabs-cie's
// pkg/ingestion/delta.go's added/modified/deleted classification, adapted
// from Git-commit deltas to upload-to-upload file deltas.
package merge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/forgepath/core/internal/errors"
	"github.com/forgepath/core/pkg/archive"
	"github.com/forgepath/core/pkg/contentstore"
	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/repository"
)

// Deps bundles the persistence surfaces Merge needs. Now defaults to
// time.Now when nil.
type Deps struct {
	Projects repository.ProjectRepository
	Files    repository.FileRepository
	Store    *contentstore.Store
	Now      func() time.Time
}

// CandidateOutcome reports what Merge did for one archive.ProjectCandidate.
type CandidateOutcome struct {
	CandidateName string
	ProjectID     string
	UploadID      string
	Created       bool // true if a new Project was created (unmapped candidate)

	// ArtifactCount is the number of files inserted (new project) or added-
	// or-modified (merged into an existing project),
	ArtifactCount int
}

// Result is the outcome of one Merge call across every candidate.
type Result struct {
	Outcomes []CandidateOutcome
}

// Merge associates each candidate with a Project (new or, via mapping, an
// existing one) and reconciles its FileEntry set. project_mapping maps a
// candidate's name to an existing project's ID; any candidate name absent
// from the mapping is treated as unmapped and gets a new Project.
//
// Fails fast with AMBIGUOUS_MAPPING if more than one candidate in this call
// maps to the same existing project ID - the mapping must be
// unique per call.
func Merge(ctx context.Context, deps Deps, candidates []archive.ProjectCandidate, projectMapping map[string]string) (*Result, error) {
	targetCount := make(map[string]int, len(projectMapping))
	for _, name := range candidateNames(candidates) {
		if id, mapped := projectMapping[name]; mapped {
			targetCount[id]++
		}
	}
	for id, n := range targetCount {
		if n > 1 {
			return nil, pkgerrors.NewAmbiguousMapping(
				"project_mapping maps more than one candidate to the same existing project",
				fmt.Sprintf("project %s is the mapping target of %d candidates in this request", id, n),
				"map each candidate name to a distinct existing project, or split the request",
			)
		}
	}

	result := &Result{Outcomes: make([]CandidateOutcome, 0, len(candidates))}
	for _, cand := range candidates {
		var outcome CandidateOutcome
		var err error
		if existingID, mapped := projectMapping[cand.Name]; mapped {
			outcome, err = mergeMapped(ctx, deps, cand, existingID)
		} else {
			outcome, err = mergeUnmapped(ctx, deps, cand)
		}
		if err != nil {
			return nil, err
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

func candidateNames(candidates []archive.ProjectCandidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}

// mergeUnmapped creates a brand-new Project, Upload, and ArtifactSource, and
// inserts one FileEntry per file, reusing ContentObjects via pkg/contentstore.
func mergeUnmapped(ctx context.Context, deps Deps, cand archive.ProjectCandidate) (CandidateOutcome, error) {
	now := deps.now()

	project := &domain.Project{
		ID:           uuid.NewString(),
		DisplayName:  cand.Name,
		RelativePath: cand.RelPath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := deps.Projects.Create(ctx, project); err != nil {
		return CandidateOutcome{}, err
	}

	upload := &domain.Upload{
		ID:          uuid.NewString(),
		ByteSize:    totalBytes(cand.Files),
		IngestedAt:  now,
		ContentRoot: cand.RelPath,
	}
	if err := deps.Files.CreateUpload(ctx, upload); err != nil {
		return CandidateOutcome{}, err
	}

	inserted := 0
	for _, f := range cand.Files {
		hash, err := deps.Store.Put(ctx, f.Data)
		if err != nil {
			return CandidateOutcome{}, err
		}
		if err := deps.Files.PutContentObject(ctx, &domain.ContentObject{
			Hash:         hash,
			Size:         int64(len(f.Data)),
			MimeCategory: contentstore.DetectMimeCategory(f.RelativePath),
		}); err != nil {
			return CandidateOutcome{}, err
		}
		if err := deps.Files.UpsertFileEntry(ctx, &domain.FileEntry{
			ProjectID:    project.ID,
			RelativePath: f.RelativePath,
			ContentHash:  hash,
		}); err != nil {
			return CandidateOutcome{}, err
		}
		inserted++
	}

	if err := deps.Files.UpsertArtifactSource(ctx, &domain.ArtifactSource{
		ProjectID:     project.ID,
		UploadID:      upload.ID,
		ArtifactCount: inserted,
	}); err != nil {
		return CandidateOutcome{}, err
	}

	return CandidateOutcome{
		CandidateName: cand.Name,
		ProjectID:     project.ID,
		UploadID:      upload.ID,
		Created:       true,
		ArtifactCount: inserted,
	}, nil
}

// mergeMapped appends cand's files onto an existing project: a FileEntry
// with an unchanged hash is a no-op (dedup); a changed hash overwrites
// (latest wins); a new relative_path is inserted. The recorded
// ArtifactSource count covers only added-or-modified files,
func mergeMapped(ctx context.Context, deps Deps, cand archive.ProjectCandidate, projectID string) (CandidateOutcome, error) {
	now := deps.now()

	if _, err := deps.Projects.Get(ctx, projectID); err != nil {
		return CandidateOutcome{}, err
	}

	upload := &domain.Upload{
		ID:          uuid.NewString(),
		ByteSize:    totalBytes(cand.Files),
		IngestedAt:  now,
		ContentRoot: cand.RelPath,
	}
	if err := deps.Files.CreateUpload(ctx, upload); err != nil {
		return CandidateOutcome{}, err
	}

	addedOrModified := 0
	for _, f := range cand.Files {
		hash, err := deps.Store.Put(ctx, f.Data)
		if err != nil {
			return CandidateOutcome{}, err
		}
		if err := deps.Files.PutContentObject(ctx, &domain.ContentObject{
			Hash:         hash,
			Size:         int64(len(f.Data)),
			MimeCategory: contentstore.DetectMimeCategory(f.RelativePath),
		}); err != nil {
			return CandidateOutcome{}, err
		}

		existing, err := deps.Files.GetFileEntry(ctx, projectID, f.RelativePath)
		switch {
		case err == nil && existing.ContentHash == hash:
			// unchanged: no-op, latest-wins dedup.
			continue
		case err == nil:
			// changed hash: latest wins.
			addedOrModified++
		default:
			// new path.
			addedOrModified++
		}

		if err := deps.Files.UpsertFileEntry(ctx, &domain.FileEntry{
			ProjectID:    projectID,
			RelativePath: f.RelativePath,
			ContentHash:  hash,
		}); err != nil {
			return CandidateOutcome{}, err
		}
	}

	if err := deps.Files.UpsertArtifactSource(ctx, &domain.ArtifactSource{
		ProjectID:     projectID,
		UploadID:      upload.ID,
		ArtifactCount: addedOrModified,
	}); err != nil {
		return CandidateOutcome{}, err
	}

	return CandidateOutcome{
		CandidateName: cand.Name,
		ProjectID:     projectID,
		UploadID:      upload.ID,
		Created:       false,
		ArtifactCount: addedOrModified,
	}, nil
}

func totalBytes(files []archive.File) int64 {
	var total int64
	for _, f := range files {
		total += int64(len(f.Data))
	}
	return total
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
