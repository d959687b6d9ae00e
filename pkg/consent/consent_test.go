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

package consent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/repository/memory"
)

// TestAbsentConsentDeniesLLM covers consent absence: absence of any consent
// record is treated as deny, never as an implicit grant.
func TestAbsentConsentDeniesLLM(t *testing.T) {
	store := memory.New()
	gate := New(store)
	assert.False(t, gate.CanUseLLM(context.Background(), "unknown-user"))
}

func TestPerUserConsentGrantsLLM(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.UpsertConsent(ctx, "alice", &domain.ConsentRecord{AllowLLM: true}))

	gate := New(store)
	assert.True(t, gate.CanUseLLM(ctx, "alice"))
	assert.False(t, gate.CanUseLLM(ctx, "bob"), "bob has no record of his own and no global default")
}

func TestPerUserConsentTakesPriorityOverGlobal(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.UpsertConsent(ctx, "", &domain.ConsentRecord{AllowLLM: true}))
	require.NoError(t, store.UpsertConsent(ctx, "alice", &domain.ConsentRecord{AllowLLM: false}))

	gate := New(store)
	assert.False(t, gate.CanUseLLM(ctx, "alice"), "per-user denial overrides the global grant")
	assert.True(t, gate.CanUseLLM(ctx, "bob"), "bob falls back to the global record")
}

func TestAllowedModelRequiresLLMConsentFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.UpsertConsent(ctx, "alice", &domain.ConsentRecord{AllowLLM: false, AllowedModels: []string{"gpt-4"}}))

	gate := New(store)
	assert.False(t, gate.AllowedModel(ctx, "alice", "gpt-4"), "model allow-list is irrelevant once AllowLLM is false")
}

func TestAllowedModelEmptyAllowListMeansAnyModel(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.UpsertConsent(ctx, "alice", &domain.ConsentRecord{AllowLLM: true}))

	gate := New(store)
	assert.True(t, gate.AllowedModel(ctx, "alice", "any-model-name"))
}

func TestAllowedModelRestrictsToAllowList(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.UpsertConsent(ctx, "alice", &domain.ConsentRecord{AllowLLM: true, AllowedModels: []string{"gpt-4"}}))

	gate := New(store)
	assert.True(t, gate.AllowedModel(ctx, "alice", "gpt-4"))
	assert.False(t, gate.AllowedModel(ctx, "alice", "gpt-5"))
}

func TestIgnorePatternsFallsBackToNilWithoutRecord(t *testing.T) {
	store := memory.New()
	gate := New(store)
	assert.Nil(t, gate.IgnorePatterns(context.Background(), "unknown-user"))
}

func TestIgnorePatternsReadFromRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.UpsertConsent(ctx, "alice", &domain.ConsentRecord{AllowLLM: true, IgnorePatterns: []string{"**/secrets/**"}}))

	gate := New(store)
	assert.Equal(t, []string{"**/secrets/**"}, gate.IgnorePatterns(ctx, "alice"))
}
