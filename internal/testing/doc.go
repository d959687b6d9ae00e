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

// Package testing provides test helpers for forgepath integration tests.
//
// This package wraps pkg/repository/memory with convenience seeding
// helpers so a cmd/forgepath or cross-package test can stand up a
// populated repository in a couple of lines instead of repeating the
// Project/FileEntry/CodeAnalysis construction boilerplate.
//
// # Quick Start
//
//	func TestMyFeature(t *testing.T) {
//	    repo := testing.SetupTestRepository(t)
//	    testing.InsertTestProject(t, repo, "p1", "demo", "go")
//	    testing.InsertTestFileEntry(t, repo, "p1", "main.go", "hash123")
//
//	    projects := testing.QueryProjects(t, repo)
//	    require.Len(t, projects, 1)
//	}
package testing
