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

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/forgepath/core/internal/output"
	"github.com/forgepath/core/internal/ui"
	"github.com/forgepath/core/pkg/domain"
)

// printAnalysesText renders a rank-ordered table of project analyses plus
// each project's résumé bullets, the human-readable counterpart to
// --json. Grounded on cmd/cie/status.go's printLocalStatus table shape.
func printAnalysesText(analyses []*domain.ProjectAnalysis) {
	ordered := make([]*domain.ProjectAnalysis, 0, len(analyses))
	for _, a := range analyses {
		if a != nil {
			ordered = append(ordered, a)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	ui.Header("Forgepath Analysis")
	fmt.Println()
	for _, a := range ordered {
		fmt.Printf("%s  %s\n", ui.Label(a.ProjectPath), ui.DimText(fmt.Sprintf("(%s/%s)", a.Language, a.Framework)))
		fmt.Printf("  Role:        %s (%.1f%% of commits)\n", a.Role, a.ContributionPct)
		fmt.Printf("  Score:       %.3f\n", a.Score)
		fmt.Printf("  Tools:       %v\n", a.Tools)
		fmt.Printf("  Practices:   %v\n", a.Practices)
		fmt.Println("  Bullets:")
		for _, b := range a.ResumeBullets {
			fmt.Printf("    - %s\n", b)
		}
		fmt.Println()
	}
}

// printAnalysesJSON writes the full analysis batch as pretty JSON.
func printAnalysesJSON(analyses []*domain.ProjectAnalysis) {
	if err := output.JSON(analyses); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
