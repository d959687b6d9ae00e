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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgepath/core/pkg/domain"
)

// TestSetupTestRepository verifies the test repository is created correctly.
func TestSetupTestRepository(t *testing.T) {
	repo := SetupTestRepository(t)
	require.NotNil(t, repo)
	assert.Empty(t, QueryProjects(t, repo), "should start with no projects")
}

// TestInsertTestProject verifies project insertion.
func TestInsertTestProject(t *testing.T) {
	repo := SetupTestRepository(t)
	InsertTestProject(t, repo, "p1", "auth-service", "go")

	projects := QueryProjects(t, repo)
	require.Len(t, projects, 1)
	assert.Equal(t, "auth-service", projects[0].DisplayName)
	assert.Equal(t, "go", projects[0].Language)
}

// TestInsertTestFileEntry verifies file entry insertion.
func TestInsertTestFileEntry(t *testing.T) {
	repo := SetupTestRepository(t)
	InsertTestProject(t, repo, "p1", "auth-service", "go")
	InsertTestFileEntry(t, repo, "p1", "main.go", "abc123")

	entries := QueryFileEntries(t, repo, "p1")
	require.Len(t, entries, 1)
	assert.Equal(t, "main.go", entries[0].RelativePath)
	assert.Equal(t, "abc123", entries[0].ContentHash)
}

// TestInsertTestCodeAnalysis verifies code analysis insertion.
func TestInsertTestCodeAnalysis(t *testing.T) {
	repo := SetupTestRepository(t)
	InsertTestProject(t, repo, "p1", "auth-service", "go")
	InsertTestCodeAnalysis(t, repo, "p1", "go", 500, 12)

	analyses, err := repo.ListCodeAnalyses(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, 500, analyses[0].Metrics.TotalLOC)
	assert.Equal(t, 12, analyses[0].Metrics.FunctionCount)
}

// TestInsertTestSkill verifies skill attachment.
func TestInsertTestSkill(t *testing.T) {
	repo := SetupTestRepository(t)
	InsertTestProject(t, repo, "p1", "auth-service", "go")
	InsertTestSkill(t, repo, "p1", "Go Modules", domain.SkillKindTool)
	InsertTestSkill(t, repo, "p1", "Automated testing", domain.SkillKindPractice)

	skills := QuerySkills(t, repo, "p1")
	names := map[string]bool{}
	for _, s := range skills {
		names[s.Name] = true
	}
	assert.True(t, names["Go Modules"])
	assert.True(t, names["Automated testing"])
}

// TestMultipleInserts verifies multiple projects can be inserted.
func TestMultipleInserts(t *testing.T) {
	repo := SetupTestRepository(t)
	InsertTestProject(t, repo, "p1", "main", "go")
	InsertTestProject(t, repo, "p2", "helper", "python")
	InsertTestProject(t, repo, "p3", "processor", "java")

	assert.Len(t, QueryProjects(t, repo), 3)
}

// TestRepositoryIsolation verifies each test gets an isolated repository.
func TestRepositoryIsolation(t *testing.T) {
	repo1 := SetupTestRepository(t)
	InsertTestProject(t, repo1, "p1", "first", "go")

	repo2 := SetupTestRepository(t)
	assert.Empty(t, QueryProjects(t, repo2), "second repository should be isolated from the first")

	assert.Len(t, QueryProjects(t, repo1), 1, "first repository should still have its data")
}
