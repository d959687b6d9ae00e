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

package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgepath/core/pkg/contentstore"
	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/gitlog"
	"github.com/forgepath/core/pkg/gitmetrics"
	"github.com/forgepath/core/pkg/repository/memory"
)

type fakeGitProvider struct {
	commits map[string][]gitlog.Commit
}

func (f fakeGitProvider) IsRepository(_ context.Context, root string) bool {
	_, ok := f.commits[root]
	return ok
}

func (f fakeGitProvider) Log(_ context.Context, root string) ([]gitlog.Commit, error) {
	return f.commits[root], nil
}

// seedProject creates a Project with the given files already merged in
// (ContentObject + FileEntry rows), the way pkg/merge would have left it.
func seedProject(t *testing.T, ctx context.Context, store *memory.Store, content *contentstore.Store, id string, files map[string]string) {
	t.Helper()
	require.NoError(t, store.Create(ctx, &domain.Project{ID: id, DisplayName: id, RelativePath: id}))
	for path, body := range files {
		hash, err := content.Put(ctx, []byte(body))
		require.NoError(t, err)
		require.NoError(t, store.PutContentObject(ctx, &domain.ContentObject{Hash: hash, Size: int64(len(body))}))
		require.NoError(t, store.UpsertFileEntry(ctx, &domain.FileEntry{ProjectID: id, RelativePath: path, ContentHash: hash}))
	}
}

func newTestPipeline(store *memory.Store, content *contentstore.Store, git *fakeGitProvider, roots map[string]string) *Pipeline {
	deps := Deps{Repo: store, Content: content}
	if git != nil {
		deps.GitProvider = *git
	}
	return New(deps)
}

func TestAnalyzeBatchProducesCompleteAnalysis(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	content := contentstore.New()
	seedProject(t, ctx, store, content, "p1", map[string]string{
		"main.py": "def greet(name: str) -> str:\n    return 'hi ' + name\n",
	})

	p := newTestPipeline(store, content, nil, nil)
	results, err := p.AnalyzeBatch(ctx, []string{"p1"}, Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0])
	assert.Equal(t, "python", results[0].Language)
	assert.NotEmpty(t, results[0].ResumeBullets)
	assert.Equal(t, domain.BulletSourceLocal, results[0].ResumeBulletSource)
}

// TestFingerprintGateSkipsUnchangedProject covers the fingerprint-gate
// property: a second AnalyzeBatch call with no file changes and Force=false
// must not re-run Git/analysis, reusing the persisted analysis instead.
func TestFingerprintGateSkipsUnchangedProject(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	content := contentstore.New()
	seedProject(t, ctx, store, content, "p1", map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	p := newTestPipeline(store, content, nil, nil)
	first, err := p.AnalyzeBatch(ctx, []string{"p1"}, Options{})
	require.NoError(t, err)
	require.NotNil(t, first[0])

	second, err := p.AnalyzeBatch(ctx, []string{"p1"}, Options{})
	require.NoError(t, err)
	require.NotNil(t, second[0])
	assert.Equal(t, first[0].Language, second[0].Language)
}

// TestForceBypassesFingerprintGate covers the Force option re-running
// analysis even when the fingerprint is unchanged.
func TestForceBypassesFingerprintGate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	content := contentstore.New()
	seedProject(t, ctx, store, content, "p1", map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	p := newTestPipeline(store, content, nil, nil)
	_, err := p.AnalyzeBatch(ctx, []string{"p1"}, Options{})
	require.NoError(t, err)

	results, err := p.AnalyzeBatch(ctx, []string{"p1"}, Options{Force: true})
	require.NoError(t, err)
	require.NotNil(t, results[0])
	assert.Equal(t, "go", results[0].Language)
}

func TestAnalyzeBatchComputesGitRole(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	content := contentstore.New()
	seedProject(t, ctx, store, content, "p1", map[string]string{"main.go": "package main\n"})

	git := &fakeGitProvider{commits: map[string][]gitlog.Commit{
		"/work/p1": {
			{AuthorEmail: "me@example.com", AuthorName: "Me"},
			{AuthorEmail: "me@example.com", AuthorName: "Me"},
		},
	}}
	p := newTestPipeline(store, content, git, nil)
	p.deps.Identity = gitmetrics.Identity{Emails: []string{"me@example.com"}}
	results, err := p.AnalyzeBatch(ctx, []string{"p1"}, Options{ProjectRoots: map[string]string{"p1": "/work/p1"}})
	require.NoError(t, err)
	require.NotNil(t, results[0])
	assert.Equal(t, domain.RoleSoloDeveloper, results[0].Role)
	assert.False(t, results[0].IsCollaborative)
}

// TestPartialFailureDoesNotAbortBatch covers the partial-failure
// policy: a project lookup failure for one ID doesn't prevent the others
// in the same batch from completing.
func TestPartialFailureDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	content := contentstore.New()
	seedProject(t, ctx, store, content, "good", map[string]string{"main.go": "package main\n"})

	p := newTestPipeline(store, content, nil, nil)
	results, err := p.AnalyzeBatch(ctx, []string{"good", "missing"}, Options{})
	require.Error(t, err)
	require.Len(t, results, 2)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
}

func TestAnalyzeBatchAssignsUniqueRanks(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	content := contentstore.New()
	seedProject(t, ctx, store, content, "a", map[string]string{"main.go": "package main\n"})
	seedProject(t, ctx, store, content, "b", map[string]string{"main.py": "x = 1\n", "util.py": "y = 2\n"})

	p := newTestPipeline(store, content, nil, nil)
	results, err := p.AnalyzeBatch(ctx, []string{"a", "b"}, Options{})
	require.NoError(t, err)

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	b, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.NotEqual(t, a.ImportanceRank, b.ImportanceRank)
	assert.NotNil(t, results[0])
	assert.NotNil(t, results[1])
}
