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

package contentstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/repository/memory"
)

func TestPutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := New()

	h1, err := store.Put(ctx, []byte("hello world"))
	require.NoError(t, err)
	h2, err := store.Put(ctx, []byte("hello world"))
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.True(t, store.Has(h1))
}

func TestGetUnknownHashIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := New()

	_, err := store.Get(ctx, "deadbeef")
	require.Error(t, err)
}

func TestGetReturnsPutBytes(t *testing.T) {
	ctx := context.Background()
	store := New()

	hash, err := store.Put(ctx, []byte("package main"))
	require.NoError(t, err)

	data, err := store.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))
}

func TestHashIsLowercaseHex64(t *testing.T) {
	h := Hash([]byte("anything"))
	assert.Len(t, h, 64)
	for _, c := range h {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'), "unexpected char %q", c)
	}
}

// TestFingerprintStability covers the fingerprint-stability property:
// fingerprint(P) == fingerprint(P') iff the (relative_path, content_hash)
// multisets are identical, regardless of insertion order.
func TestFingerprintStability(t *testing.T) {
	ctx := context.Background()
	repoA := memory.New()
	repoB := memory.New()

	entriesA := []*domain.FileEntry{
		{ProjectID: "p", RelativePath: "b.py", ContentHash: "h2"},
		{ProjectID: "p", RelativePath: "a.py", ContentHash: "h1"},
	}
	entriesB := []*domain.FileEntry{
		{ProjectID: "p", RelativePath: "a.py", ContentHash: "h1"},
		{ProjectID: "p", RelativePath: "b.py", ContentHash: "h2"},
	}
	for _, e := range entriesA {
		require.NoError(t, repoA.UpsertFileEntry(ctx, e))
	}
	for _, e := range entriesB {
		require.NoError(t, repoB.UpsertFileEntry(ctx, e))
	}

	fpA, err := Fingerprint(ctx, repoA, "p")
	require.NoError(t, err)
	fpB, err := Fingerprint(ctx, repoB, "p")
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB, "insertion order must not affect the fingerprint")
	assert.Len(t, fpA, 64)
}

func TestFingerprintChangesWithContent(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	require.NoError(t, repo.UpsertFileEntry(ctx, &domain.FileEntry{ProjectID: "p", RelativePath: "a.py", ContentHash: "h1"}))
	fp1, err := Fingerprint(ctx, repo, "p")
	require.NoError(t, err)

	require.NoError(t, repo.UpsertFileEntry(ctx, &domain.FileEntry{ProjectID: "p", RelativePath: "a.py", ContentHash: "h2"}))
	fp2, err := Fingerprint(ctx, repo, "p")
	require.NoError(t, err)

	assert.NotEqual(t, fp1, fp2)
}

func TestDetectMimeCategory(t *testing.T) {
	cases := map[string]domain.MimeCategory{
		"main.py":        domain.MimeCategoryCode,
		"src/app.go":     domain.MimeCategoryCode,
		"README.md":      domain.MimeCategoryDoc,
		"design/logo.ai": domain.MimeCategoryDesign,
		"img/photo.png":  domain.MimeCategoryMedia,
		"data.bin":       domain.MimeCategoryOther,
	}
	for path, want := range cases {
		assert.Equal(t, want, DetectMimeCategory(path), "path %s", path)
	}
}
