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

package merge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgepath/core/pkg/archive"
	"github.com/forgepath/core/pkg/contentstore"
	"github.com/forgepath/core/pkg/repository/memory"
)

func newDeps() (*memory.Store, Deps) {
	store := memory.New()
	return store, Deps{
		Projects: store,
		Files:    store,
		Store:    contentstore.New(),
		Now:      func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

// TestUnmappedCandidateCreatesProject verifies that a single
// unmapped candidate creates one Project with its files as FileEntries.
func TestUnmappedCandidateCreatesProject(t *testing.T) {
	ctx := context.Background()
	store, deps := newDeps()

	cand := archive.ProjectCandidate{
		Name:    "demo",
		RelPath: "demo",
		Files: []archive.File{
			{RelativePath: "main.py", Data: []byte("print('hi')")},
			{RelativePath: "README.md", Data: []byte("# demo")},
		},
	}

	result, err := Merge(ctx, deps, []archive.ProjectCandidate{cand}, nil)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)

	outcome := result.Outcomes[0]
	assert.True(t, outcome.Created)
	assert.Equal(t, 2, outcome.ArtifactCount)

	entries, err := store.ListFileEntries(ctx, outcome.ProjectID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// TestIncrementalMergeDedup covers the dedup property: an unchanged
// file across two uploads is a no-op, and the
// second upload's ArtifactSource count reflects only the new file.
func TestIncrementalMergeDedup(t *testing.T) {
	ctx := context.Background()
	store, deps := newDeps()

	uploadA := archive.ProjectCandidate{
		Name:    "demo",
		RelPath: "demo",
		Files: []archive.File{
			{RelativePath: "main.py", Data: []byte("H1 content")},
			{RelativePath: "util.py", Data: []byte("H2 content")},
		},
	}
	first, err := Merge(ctx, deps, []archive.ProjectCandidate{uploadA}, nil)
	require.NoError(t, err)
	projectID := first.Outcomes[0].ProjectID

	uploadB := archive.ProjectCandidate{
		Name:    "demo",
		RelPath: "demo",
		Files: []archive.File{
			{RelativePath: "main.py", Data: []byte("H1 content")}, // unchanged
			{RelativePath: "api.py", Data: []byte("H3 content")},  // new
		},
	}
	second, err := Merge(ctx, deps, []archive.ProjectCandidate{uploadB}, map[string]string{"demo": projectID})
	require.NoError(t, err)
	require.Len(t, second.Outcomes, 1)

	assert.False(t, second.Outcomes[0].Created)
	assert.Equal(t, 1, second.Outcomes[0].ArtifactCount, "only api.py is new")

	entries, err := store.ListFileEntries(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	sources, err := store.ListArtifactSources(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, sources, 2)
}

func TestMergeOverwritesChangedContent(t *testing.T) {
	ctx := context.Background()
	store, deps := newDeps()

	first, err := Merge(ctx, deps, []archive.ProjectCandidate{{
		Name: "demo", RelPath: "demo",
		Files: []archive.File{{RelativePath: "main.py", Data: []byte("v1")}},
	}}, nil)
	require.NoError(t, err)
	projectID := first.Outcomes[0].ProjectID

	second, err := Merge(ctx, deps, []archive.ProjectCandidate{{
		Name: "demo", RelPath: "demo",
		Files: []archive.File{{RelativePath: "main.py", Data: []byte("v2")}},
	}}, map[string]string{"demo": projectID})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Outcomes[0].ArtifactCount, "changed content counts as modified")

	entry, err := store.GetFileEntry(ctx, projectID, "main.py")
	require.NoError(t, err)
	assert.Equal(t, contentstore.Hash([]byte("v2")), entry.ContentHash)
}

func TestAmbiguousMappingFails(t *testing.T) {
	ctx := context.Background()
	_, deps := newDeps()

	candidates := []archive.ProjectCandidate{
		{Name: "a", RelPath: "a", Files: []archive.File{{RelativePath: "x", Data: []byte("x")}}},
		{Name: "b", RelPath: "b", Files: []archive.File{{RelativePath: "y", Data: []byte("y")}}},
	}
	_, err := Merge(ctx, deps, candidates, map[string]string{"a": "p1", "b": "p1"})
	require.Error(t, err)
}

// TestReplayIsNoOp covers the idempotence law: replaying the same upload
// twice against the same mapping leaves the FileEntry set unchanged.
func TestReplayIsNoOp(t *testing.T) {
	ctx := context.Background()
	store, deps := newDeps()

	cand := archive.ProjectCandidate{
		Name: "demo", RelPath: "demo",
		Files: []archive.File{{RelativePath: "main.py", Data: []byte("same")}},
	}
	first, err := Merge(ctx, deps, []archive.ProjectCandidate{cand}, nil)
	require.NoError(t, err)
	projectID := first.Outcomes[0].ProjectID

	_, err = Merge(ctx, deps, []archive.ProjectCandidate{cand}, map[string]string{"demo": projectID})
	require.NoError(t, err)

	entries, err := store.ListFileEntries(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
