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

// Package contentstore gives the pipeline a single, idempotent place to put
// file bytes and to derive the per-project fingerprint that gates
// re-analysis. Hashing follows kraklabs-cie's pkg/ingestion/ids.go: raw
// SHA-256, hex-encoded, no salting.
package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	pkgerrors "github.com/forgepath/core/internal/errors"
	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/repository"
)

// Store is a content-addressed object store. Put is idempotent: inserting
// the same bytes twice is a no-op the second time.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates an empty in-memory content store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

// Hash returns the lowercase hex SHA-256 digest of bytes without storing
// them. Used by callers that need content_hash before deciding whether the
// bytes are new (e.g. the merge engine's dedup check).
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put writes bytes to the store iff no object with that hash already
// exists, and returns the hash.
func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	hash := Hash(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[hash]; !exists {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.objects[hash] = cp
	}
	return hash, nil
}

// Get returns the bytes for hash, or a NOT_FOUND PipelineError if unknown.
func (s *Store) Get(_ context.Context, hash string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[hash]
	if !ok {
		return nil, pkgerrors.NewNotFound("content object not found", "hash "+hash+" was never put into the content store", "verify the hash or re-ingest the upload that produced it")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Has reports whether hash is already present, without copying the bytes.
func (s *Store) Has(hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[hash]
	return ok
}

// Fingerprint computes the project's current 32-byte (64 hex char)
// fingerprint by sorting (relative_path, content_hash) pairs lexicographically
// by relative_path and hashing the serialised sorted sequence.
// Two runs on an identical FileEntry set produce an identical fingerprint,
// regardless of insertion or map-iteration order.
func Fingerprint(ctx context.Context, files repository.FileRepository, projectID string) (string, error) {
	entries, err := files.ListFileEntries(ctx, projectID)
	if err != nil {
		return "", err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelativePath < entries[j].RelativePath
	})

	var b strings.Builder
	for _, f := range entries {
		b.WriteString(f.RelativePath)
		b.WriteByte('\x00')
		b.WriteString(f.ContentHash)
		b.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

// DetectMimeCategory classifies a file's content category from its relative
// path, used when creating ContentObject rows. Code/doc/design recognition
// is extension-based; anything else falls to "other"'s
// media/binary non-goal (binary analysis is out of scope beyond counting).
func DetectMimeCategory(relativePath string) domain.MimeCategory {
	ext := strings.ToLower(pathExt(relativePath))
	switch ext {
	case ".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".c", ".h", ".cc", ".cpp", ".hpp",
		".cs", ".rb", ".php", ".swift", ".kt", ".scala", ".clj", ".sh", ".proto", ".rs":
		return domain.MimeCategoryCode
	case ".md", ".txt", ".rst", ".adoc":
		return domain.MimeCategoryDoc
	case ".fig", ".sketch", ".psd", ".ai", ".xd":
		return domain.MimeCategoryDesign
	case ".png", ".jpg", ".jpeg", ".gif", ".svg", ".mp4", ".mov", ".webp", ".ico":
		return domain.MimeCategoryMedia
	default:
		return domain.MimeCategoryOther
	}
}

func pathExt(relativePath string) string {
	idx := strings.LastIndexByte(relativePath, '/')
	name := relativePath
	if idx >= 0 {
		name = relativePath[idx+1:]
	}
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return ""
	}
	return name[dot:]
}
