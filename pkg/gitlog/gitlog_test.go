// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package gitlog

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogOutputParsesFields(t *testing.T) {
	raw := "abc123\x1fAlice\x1falice@example.com\x1f2024-01-02T15:04:05Z\x1fInitial commit\x1f\n" +
		"def456\x1fBob\x1fbob@example.com\x1f2024-01-03T10:00:00Z\x1fMerge pull request #1\x1fabc123 fed987\n"

	commits, err := parseLogOutput(bytes.NewBufferString(raw))
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, "abc123", commits[0].SHA)
	assert.Equal(t, "Alice", commits[0].AuthorName)
	assert.Equal(t, "alice@example.com", commits[0].AuthorEmail)
	assert.Equal(t, "Initial commit", commits[0].Subject)
	assert.False(t, commits[0].IsMerge)
	assert.Equal(t, -1, commits[0].Churn)

	expectedTS, _ := time.Parse(time.RFC3339, "2024-01-03T10:00:00Z")
	assert.True(t, commits[1].Timestamp.Equal(expectedTS))
	assert.True(t, commits[1].IsMerge, "two parents means a merge commit")
}

func TestParseLogOutputSkipsMalformedLines(t *testing.T) {
	raw := "not-enough-fields\x1fonly-two\n" +
		"abc123\x1fAlice\x1falice@example.com\x1f2024-01-02T15:04:05Z\x1fOK\x1f\n"

	commits, err := parseLogOutput(bytes.NewBufferString(raw))
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "abc123", commits[0].SHA)
}

func TestParseLogOutputSkipsUnparseableTimestamp(t *testing.T) {
	raw := "abc123\x1fAlice\x1falice@example.com\x1fnot-a-date\x1fOK\x1f\n"
	commits, err := parseLogOutput(bytes.NewBufferString(raw))
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestParseLogOutputEmptyInput(t *testing.T) {
	commits, err := parseLogOutput(bytes.NewBufferString(""))
	require.NoError(t, err)
	assert.Empty(t, commits)
}
