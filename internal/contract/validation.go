// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package contract holds small, env-tunable validation helpers shared by
// cmd/forgepath and pkg/archive/pkg/pipeline, so the same limits apply
// whether a request arrives over the CLI or in-process.
package contract

import (
	"os"
	"strconv"

	"github.com/forgepath/core/pkg/repository"
)

const (
	// DefaultArchiveSoftLimitBytes is the baseline uncompressed-size cap
	// applied to an uploaded archive before ARCHIVE_TOO_LARGE is raised.
	DefaultArchiveSoftLimitBytes = 256 << 20 // 256 MiB

	// RequestIDMaxBytes is the maximum length for a caller-supplied
	// request_id field.
	RequestIDMaxBytes = 128
)

// ArchiveSoftLimitBytes returns the effective uncompressed-size cap for
// uploaded archives. Controlled via env FORGEPATH_ARCHIVE_SOFT_LIMIT_BYTES;
// falls back to DefaultArchiveSoftLimitBytes.
func ArchiveSoftLimitBytes() int64 {
	if v := os.Getenv("FORGEPATH_ARCHIVE_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return DefaultArchiveSoftLimitBytes
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateArchiveSize checks an archive's declared uncompressed size against
// the configured soft limit.
func ValidateArchiveSize(uncompressedBytes int64) *ValidationResult {
	limit := ArchiveSoftLimitBytes()
	if uncompressedBytes > limit {
		return &ValidationResult{
			OK:      false,
			Message: "archive uncompressed size exceeds the configured limit",
		}
	}
	return &ValidationResult{OK: true}
}

// ValidateRerank checks that a caller-supplied rerank request assigns every
// entry a distinct rank forming exactly {1..n}, before it ever
// reaches repository.ProjectRepository.Rerank.
func ValidateRerank(entries []repository.RerankEntry) *ValidationResult {
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.Rank < 1 || e.Rank > len(entries) {
			return &ValidationResult{OK: false, Message: "rerank rank out of range"}
		}
		if seen[e.Rank] {
			return &ValidationResult{OK: false, Message: "rerank contains duplicate ranks"}
		}
		seen[e.Rank] = true
	}
	return &ValidationResult{OK: true}
}
