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

package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) (*bytes.Reader, int64) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	data := buf.Bytes()
	return bytes.NewReader(data), int64(len(data))
}

func TestExtractRejectsMalformedArchive(t *testing.T) {
	r := bytes.NewReader([]byte("not a zip"))
	_, err := Extract(context.Background(), nil, r, int64(r.Len()), 0, nil)
	require.Error(t, err)
}

// TestSingleProjectFallback verifies that when no manifest and no VCS
// metadata appear anywhere, the content root itself is the only project.
func TestSingleProjectFallback(t *testing.T) {
	r, size := buildZip(t, map[string]string{
		"demo/main.py":   "print('hi')",
		"demo/README.md": "# demo",
	})
	result, err := Extract(context.Background(), nil, r, size, 0, nil)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, ".", result.Candidates[0].RelPath)
	assert.Equal(t, "demo", result.Candidates[0].Name)
	assert.Equal(t, 2, result.Candidates[0].FileCount)
}

func TestManifestMarksProjectRoot(t *testing.T) {
	r, size := buildZip(t, map[string]string{
		"workspace/demo/go.mod":    "module demo\n",
		"workspace/demo/main.go":   "package main\n",
		"workspace/other/setup.py": "from setuptools import setup\n",
	})
	result, err := Extract(context.Background(), nil, r, size, 0, nil)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)

	names := map[string]bool{}
	for _, c := range result.Candidates {
		names[c.Name] = true
	}
	assert.True(t, names["demo"])
	assert.True(t, names["other"])
}

func TestNestedProjectIsShadowed(t *testing.T) {
	r, size := buildZip(t, map[string]string{
		"workspace/demo/go.mod":            "module demo\n",
		"workspace/demo/main.go":           "package main\n",
		"workspace/demo/vendor/dep/go.mod": "module dep\n",
	})
	// A custom, non-matching ignore list so the nested manifest isn't
	// simply filtered out by the default vendor/ exclusion; the shadowing
	// rule itself must suppress the nested candidate.
	result, err := Extract(context.Background(), nil, r, size, 0, []string{"no-such-pattern/**"})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "workspace/demo", result.Candidates[0].RelPath)
}

func TestIgnoredFilesAreExcludedFromFileCount(t *testing.T) {
	r, size := buildZip(t, map[string]string{
		"demo/main.py":                  "print(1)",
		"demo/node_modules/pkg/index.js": "module.exports = {}",
	})
	result, err := Extract(context.Background(), nil, r, size, 0, nil)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, 1, result.Candidates[0].FileCount)
	assert.Equal(t, 1, result.SkipReasons["excluded"])
}

func TestArchiveTooLarge(t *testing.T) {
	r, size := buildZip(t, map[string]string{
		"demo/main.py": "print('hello world, this is a reasonably sized file')",
	})
	_, err := Extract(context.Background(), nil, r, size, 4, nil)
	require.Error(t, err)
}

func TestGitPresentFlag(t *testing.T) {
	r, size := buildZip(t, map[string]string{
		"demo/.git/": "", // explicit directory entry, registered regardless of ignore patterns
		"demo/main.go": "package main\n",
	})
	result, err := Extract(context.Background(), nil, r, size, 0, nil)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.True(t, result.Candidates[0].GitPresent)
}

func TestMatchesGlobBasics(t *testing.T) {
	assert.True(t, MatchesGlob("src/node_modules/x.js", "**/node_modules/**"))
	assert.True(t, MatchesGlob("a/b/c.pyc", "*.pyc"))
	assert.False(t, MatchesGlob("a/b/c.py", "*.pyc"))
	assert.True(t, MatchesGlob("vendor/dep/go.mod", "**/vendor/**"))
}
