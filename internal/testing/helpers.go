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

package testing

import (
	"context"
	"testing"

	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/repository/memory"
)

// SetupTestRepository creates an in-memory repository for testing. Nothing
// needs cleanup: pkg/repository/memory.Store holds its state in ordinary
// Go maps, not an external process or on-disk engine.
//
// Example:
//
//	repo := testing.SetupTestRepository(t)
//	testing.InsertTestProject(t, repo, "p1", "demo", "go")
func SetupTestRepository(t *testing.T) *memory.Store {
	t.Helper()
	return memory.New()
}

// InsertTestProject adds a test Project to the repository.
//
// Example:
//
//	repo := testing.SetupTestRepository(t)
//	testing.InsertTestProject(t, repo, "p1", "auth-service", "go")
func InsertTestProject(t *testing.T, repo *memory.Store, id, displayName, language string) {
	t.Helper()
	if err := repo.Create(context.Background(), &domain.Project{
		ID:          id,
		DisplayName: displayName,
		Language:    language,
	}); err != nil {
		t.Fatalf("failed to insert test project: %v", err)
	}
}

// InsertTestFileEntry adds a FileEntry (and its backing ContentObject) to
// the repository, linking projectID to relativePath at contentHash.
//
// Example:
//
//	testing.InsertTestFileEntry(t, repo, "p1", "main.go", "abc123")
func InsertTestFileEntry(t *testing.T, repo *memory.Store, projectID, relativePath, contentHash string) {
	t.Helper()
	ctx := context.Background()
	if err := repo.PutContentObject(ctx, &domain.ContentObject{Hash: contentHash, Size: int64(len(relativePath))}); err != nil {
		t.Fatalf("failed to insert test content object: %v", err)
	}
	if err := repo.UpsertFileEntry(ctx, &domain.FileEntry{
		ProjectID:    projectID,
		RelativePath: relativePath,
		ContentHash:  contentHash,
	}); err != nil {
		t.Fatalf("failed to insert test file entry: %v", err)
	}
}

// InsertTestCodeAnalysis adds a CodeAnalysis row for projectID under
// language, with the given line-of-code and function counts.
//
// Example:
//
//	testing.InsertTestCodeAnalysis(t, repo, "p1", "go", 500, 12)
func InsertTestCodeAnalysis(t *testing.T, repo *memory.Store, projectID, language string, totalLOC, functionCount int) {
	t.Helper()
	if err := repo.UpsertCodeAnalysis(context.Background(), &domain.CodeAnalysis{
		ProjectID: projectID,
		Language:  language,
		Metrics: domain.CodeMetrics{
			TotalLOC:      totalLOC,
			FunctionCount: functionCount,
		},
	}); err != nil {
		t.Fatalf("failed to insert test code analysis: %v", err)
	}
}

// InsertTestSkill records a Skill and attaches it to projectID's skill set.
//
// Example:
//
//	testing.InsertTestSkill(t, repo, "p1", "Go Modules", domain.SkillKindTool)
func InsertTestSkill(t *testing.T, repo *memory.Store, projectID, name string, kind domain.SkillKind) {
	t.Helper()
	ctx := context.Background()
	skill := domain.Skill{Name: name, Kind: kind}
	if err := repo.UpsertSkill(ctx, skill); err != nil {
		t.Fatalf("failed to upsert test skill: %v", err)
	}
	existing, err := repo.ListProjectSkills(ctx, projectID)
	if err != nil {
		t.Fatalf("failed to list existing test skills: %v", err)
	}
	if err := repo.SetProjectSkills(ctx, projectID, append(existing, skill)); err != nil {
		t.Fatalf("failed to attach test skill: %v", err)
	}
}

// QueryProjects returns every Project currently in the repository.
//
// Example:
//
//	projects := testing.QueryProjects(t, repo)
//	require.Len(t, projects, 1)
func QueryProjects(t *testing.T, repo *memory.Store) []*domain.Project {
	t.Helper()
	projects, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("failed to list test projects: %v", err)
	}
	return projects
}

// QueryFileEntries returns every FileEntry recorded for projectID.
//
// Example:
//
//	entries := testing.QueryFileEntries(t, repo, "p1")
//	require.Len(t, entries, 1)
func QueryFileEntries(t *testing.T, repo *memory.Store, projectID string) []*domain.FileEntry {
	t.Helper()
	entries, err := repo.ListFileEntries(context.Background(), projectID)
	if err != nil {
		t.Fatalf("failed to list test file entries: %v", err)
	}
	return entries
}

// QuerySkills returns every Skill currently attached to projectID.
//
// Example:
//
//	skills := testing.QuerySkills(t, repo, "p1")
//	require.Len(t, skills, 1)
func QuerySkills(t *testing.T, repo *memory.Store, projectID string) []domain.Skill {
	t.Helper()
	skills, err := repo.ListProjectSkills(context.Background(), projectID)
	if err != nil {
		t.Fatalf("failed to list test skills: %v", err)
	}
	return skills
}
