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

// Package consent is the sole authority on whether the pipeline may make
// outbound calls. Every component that contemplates an LLM call goes
// through Gate; there is no back-door. Shaped after
// internal/contract/validation.go's small repository-backed gate pattern.
package consent

import (
	"context"

	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/repository"
)

// Gate decides, per user, whether the LLM path is available and which
// ignore patterns apply to ingest/analysis.
type Gate struct {
	consent repository.ConsentRepository
}

// New builds a Gate backed by the given ConsentRepository.
func New(consent repository.ConsentRepository) *Gate {
	return &Gate{consent: consent}
}

// recordFor resolves the record to use for userID: a per-user record if one
// exists, else the global default, else nil (absence = deny).
func (g *Gate) recordFor(ctx context.Context, userID string) *domain.ConsentRecord {
	if rec, err := g.consent.GetConsent(ctx, userID); err == nil {
		return rec
	}
	if rec, err := g.consent.GetGlobalConsent(ctx); err == nil {
		return rec
	}
	return nil
}

// CanUseLLM reports whether userID's latest ConsentRecord allows the LLM
// path. Absence of any record is deny,
func (g *Gate) CanUseLLM(ctx context.Context, userID string) bool {
	rec := g.recordFor(ctx, userID)
	if rec == nil {
		return false
	}
	return rec.AllowLLM
}

// AllowedModel reports whether model is in userID's allow-list. An empty
// allow-list is treated as "any model allowed" once AllowLLM is true.
func (g *Gate) AllowedModel(ctx context.Context, userID, model string) bool {
	if !g.CanUseLLM(ctx, userID) {
		return false
	}
	rec := g.recordFor(ctx, userID)
	if rec == nil || len(rec.AllowedModels) == 0 {
		return true
	}
	for _, m := range rec.AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}

// IgnorePatterns returns userID's configured ignore-glob list, or nil if no
// record exists (callers fall back to archive.DefaultIgnorePatterns).
func (g *Gate) IgnorePatterns(ctx context.Context, userID string) []string {
	rec := g.recordFor(ctx, userID)
	if rec == nil {
		return nil
	}
	return rec.IgnorePatterns
}
