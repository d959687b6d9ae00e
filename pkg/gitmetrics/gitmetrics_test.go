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

package gitmetrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/gitlog"
)

type fakeProvider struct {
	isRepo  bool
	commits []gitlog.Commit
	logErr  error
}

func (f fakeProvider) IsRepository(context.Context, string) bool { return f.isRepo }
func (f fakeProvider) Log(context.Context, string) ([]gitlog.Commit, error) {
	return f.commits, f.logErr
}

func commitsFor(userCommits, otherCommits int, userEmail string, otherEmail string, base time.Time) []gitlog.Commit {
	var out []gitlog.Commit
	for i := 0; i < userCommits; i++ {
		out = append(out, gitlog.Commit{AuthorEmail: userEmail, AuthorName: "User", Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}
	for i := 0; i < otherCommits; i++ {
		out = append(out, gitlog.Commit{AuthorEmail: otherEmail, AuthorName: "Other", Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}
	return out
}

func identity(email string) Identity {
	return Identity{Emails: []string{email}}
}

// TestRoleLeadDeveloper verifies that 100 commits, 80 from the
// user, 20 from others -> Lead Developer at 80%.
func TestRoleLeadDeveloper(t *testing.T) {
	provider := fakeProvider{isRepo: true, commits: commitsFor(80, 20, "me@example.com", "other@example.com", time.Now())}
	result := Extract(context.Background(), provider, "/repo", identity("me@example.com"))

	require.NotNil(t, result.Metrics)
	assert.True(t, result.Metrics.AuthorCount >= 2)
	assert.InDelta(t, 80.0, result.ContributionPct, 0.01)
	assert.Equal(t, domain.RoleLeadDeveloper, result.Role)
	assert.Contains(t, result.Justification, "80/100")
}

func TestRoleSoloDeveloper(t *testing.T) {
	provider := fakeProvider{isRepo: true, commits: commitsFor(10, 0, "me@example.com", "", time.Now())}
	result := Extract(context.Background(), provider, "/repo", identity("me@example.com"))

	assert.Equal(t, domain.RoleSoloDeveloper, result.Role)
	assert.Equal(t, 100.0, result.ContributionPct)
}

func TestRoleCoLead(t *testing.T) {
	// 45% user, 55% single other author >= 25% -> Co-Lead
	provider := fakeProvider{isRepo: true, commits: commitsFor(45, 55, "me@example.com", "other@example.com", time.Now())}
	result := Extract(context.Background(), provider, "/repo", identity("me@example.com"))
	assert.Equal(t, domain.RoleCoLead, result.Role)
}

func TestRoleContributor(t *testing.T) {
	provider := fakeProvider{isRepo: true, commits: commitsFor(20, 80, "me@example.com", "other@example.com", time.Now())}
	result := Extract(context.Background(), provider, "/repo", identity("me@example.com"))
	assert.Equal(t, domain.RoleContributor, result.Role)
}

func TestRoleMinorContributor(t *testing.T) {
	provider := fakeProvider{isRepo: true, commits: commitsFor(3, 97, "me@example.com", "other@example.com", time.Now())}
	result := Extract(context.Background(), provider, "/repo", identity("me@example.com"))
	assert.Equal(t, domain.RoleMinorContributor, result.Role)
}

func TestRoleUnknownWhenUserNotAnAuthor(t *testing.T) {
	provider := fakeProvider{isRepo: true, commits: commitsFor(0, 100, "nobody@example.com", "other@example.com", time.Now())}
	result := Extract(context.Background(), provider, "/repo", identity("me@example.com"))
	assert.Equal(t, domain.RoleUnknown, result.Role)
	assert.NotNil(t, result.Metrics)
}

// TestDamagedGitMetadataTreatedAsNoGit resolves an open question:
// a repository with no commits (damaged metadata) degrades to "no Git"
// rather than failing the whole project.
func TestDamagedGitMetadataTreatedAsNoGit(t *testing.T) {
	provider := fakeProvider{isRepo: true, commits: nil}
	result := Extract(context.Background(), provider, "/repo", identity("me@example.com"))
	assert.Nil(t, result.Metrics)
	assert.Equal(t, domain.RoleUnknown, result.Role)
	assert.NotEmpty(t, result.Diagnostic)
}

func TestNoVCSMetadataAtAll(t *testing.T) {
	provider := fakeProvider{isRepo: false}
	result := Extract(context.Background(), provider, "/repo", identity("me@example.com"))
	assert.Nil(t, result.Metrics)
	assert.Equal(t, domain.RoleUnknown, result.Role)
}

// TestRoleMonotonicity covers role monotonicity: increasing user_commits while
// holding others fixed never demotes the detected role.
func TestRoleMonotonicity(t *testing.T) {
	seniority := map[domain.Role]int{
		domain.RoleUnknown:          0,
		domain.RoleMinorContributor: 1,
		domain.RoleContributor:      2,
		domain.RoleCoLead:           3,
		domain.RoleLeadDeveloper:    4,
		domain.RoleSoloDeveloper:    5,
	}

	otherCommits := 50
	prevRank := -1
	for userCommits := 1; userCommits <= 200; userCommits += 7 {
		provider := fakeProvider{isRepo: true, commits: commitsFor(userCommits, otherCommits, "me@example.com", "other@example.com", time.Now())}
		result := Extract(context.Background(), provider, "/repo", identity("me@example.com"))
		rank := seniority[result.Role]
		assert.GreaterOrEqual(t, rank, prevRank, "role must not demote as user_commits increases (at %d commits, role=%s)", userCommits, result.Role)
		prevRank = rank
	}
}
