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

// Package gitmetrics extracts authorship statistics from a project's Git
// log and classifies the configured user into a fixed role taxonomy.
// Damaged or absent Git metadata is treated as "no Git": callers receive
// (nil, diagnostic) rather than an error, so the scorer can tolerate it
//.
package gitmetrics

import (
	"context"
	"fmt"
	"sort"

	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/gitlog"
)

// Identity names the "current user" the role detector classifies against.
// A commit's author matches if its email (preferred) or name equals one of
// these, case-insensitively on email.
type Identity struct {
	Names  []string
	Emails []string
}

func (id Identity) matches(name, email string) bool {
	for _, e := range id.Emails {
		if normalizeEmail(e) == normalizeEmail(email) {
			return true
		}
	}
	for _, n := range id.Names {
		if n == name {
			return true
		}
	}
	return false
}

func normalizeEmail(e string) string {
	out := make([]byte, len(e))
	for i := 0; i < len(e); i++ {
		c := e[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// Result is the output of Extract: the raw Git metrics (nil if absent),
// the classified role, the user's contribution percentage (0 when Metrics
// is nil), a one-sentence justification, and a diagnostic set only when
// Metrics is nil.
type Result struct {
	Metrics         *domain.GitMetrics
	Role            domain.Role
	ContributionPct float64
	Justification   string
	Diagnostic      string
}

// Extract computes domain.GitMetrics and the configured user's role from a
// project's Git log. If projectRoot has no usable Git metadata, Result.Metrics
// is nil and Result.Diagnostic explains why; no further I/O is attempted.
func Extract(ctx context.Context, provider gitlog.Provider, projectRoot string, user Identity) Result {
	if !provider.IsRepository(ctx, projectRoot) {
		return Result{Role: domain.RoleUnknown, Diagnostic: "no Git metadata present at project root"}
	}

	commits, err := provider.Log(ctx, projectRoot)
	if err != nil {
		return Result{Role: domain.RoleUnknown, Diagnostic: fmt.Sprintf("git log failed: %v", err)}
	}
	if len(commits) == 0 {
		return Result{Role: domain.RoleUnknown, Diagnostic: "git repository has no commits"}
	}

	authorCommits := make(map[string]int)  // normalized author key -> count
	authorDisplay := make(map[string]bool) // normalized author key -> is-user
	userCommits := 0
	var first, last = commits[0].Timestamp, commits[0].Timestamp

	for _, c := range commits {
		key := normalizeEmail(c.AuthorEmail)
		if key == "" {
			key = c.AuthorName
		}
		authorCommits[key]++
		if user.matches(c.AuthorName, c.AuthorEmail) {
			userCommits++
			authorDisplay[key] = true
		}
		if c.Timestamp.Before(first) {
			first = c.Timestamp
		}
		if c.Timestamp.After(last) {
			last = c.Timestamp
		}
	}

	total := len(commits)
	authorCount := len(authorCommits)
	isCollaborative := authorCount >= 2

	metrics := &domain.GitMetrics{
		CommitCount: total,
		AuthorCount: authorCount,
		FirstCommit: first,
		LastCommit:  last,
		UserCommits: userCommits,
	}

	role, pct, justification := classifyRole(authorCommits, authorDisplay, userCommits, total, isCollaborative)
	return Result{
		Metrics:         metrics,
		Role:            role,
		ContributionPct: pct,
		Justification:   justification,
	}
}

// classifyRole applies the fixed role taxonomy, with boundary ties
// resolved in favour of the higher-seniority role (Role monotonicity:
// increasing user_commits while holding others fixed never demotes).
func classifyRole(authorCommits map[string]int, userKeys map[string]bool, userCommits, total int, isCollaborative bool) (domain.Role, float64, string) {
	if userCommits == 0 && len(userKeys) == 0 {
		return domain.RoleUnknown, 0, "the configured user was not found among the repository's commit authors"
	}

	pct := float64(userCommits) / float64(total) * 100.0

	if !isCollaborative {
		return domain.RoleSoloDeveloper, 100.0, fmt.Sprintf("single author with %d/%d commits", userCommits, total)
	}

	switch {
	case pct >= 60.0:
		return domain.RoleLeadDeveloper, pct, fmt.Sprintf("user authored %d/%d commits (%.1f%%), at or above the 60%% lead threshold", userCommits, total, pct)
	case pct >= 40.0:
		if hasExactlyOneOtherAtLeast(authorCommits, userKeys, total, 0.25) {
			return domain.RoleCoLead, pct, fmt.Sprintf("user authored %d/%d commits (%.1f%%) with exactly one other author at or above 25%%", userCommits, total, pct)
		}
		return domain.RoleLeadDeveloper, pct, fmt.Sprintf("user authored %d/%d commits (%.1f%%), no co-lead counterpart found", userCommits, total, pct)
	case pct >= 10.0:
		return domain.RoleContributor, pct, fmt.Sprintf("user authored %d/%d commits (%.1f%%)", userCommits, total, pct)
	case pct > 0:
		return domain.RoleMinorContributor, pct, fmt.Sprintf("user authored %d/%d commits (%.1f%%)", userCommits, total, pct)
	default:
		return domain.RoleUnknown, pct, "user matched an author but has zero commits in this log"
	}
}

// hasExactlyOneOtherAtLeast reports whether exactly one non-user author's
// commit share is at or above floor (the Co-Lead condition: "AND
// exactly one other author ≥ 25%"). Two or more qualifying co-authors, or
// none, both fail the condition.
func hasExactlyOneOtherAtLeast(authorCommits map[string]int, userKeys map[string]bool, total int, floor float64) bool {
	keys := make([]string, 0, len(authorCommits))
	for k := range authorCommits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	matches := 0
	for _, k := range keys {
		if userKeys[k] {
			continue
		}
		if float64(authorCommits[k])/float64(total) >= floor {
			matches++
		}
	}
	return matches == 1
}
