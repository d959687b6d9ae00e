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

package langdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgepath/core/pkg/domain"
)

func TestDetectSingleProjectPython(t *testing.T) {
	result := Detect([]FileStat{
		{RelativePath: "main.py", Size: 100},
		{RelativePath: "README.md", Size: 40},
	})
	require.NotNil(t, result.Language)
	assert.Equal(t, "python", *result.Language)
	assert.Nil(t, result.Framework)
}

func TestDetectBelowFloorReportsNil(t *testing.T) {
	// Eleven distinct recognised languages of equal weight: the top
	// share is 1/11 ≈ 9.1%, below the 10% floor, so no language wins.
	exts := []string{".go", ".py", ".js", ".ts", ".java", ".rs", ".cpp", ".c", ".cs", ".rb", ".php"}
	var files []FileStat
	for i, ext := range exts {
		files = append(files, FileStat{RelativePath: "file" + string(rune('a'+i)) + ext, Size: 100})
	}
	result := Detect(files)
	assert.Nil(t, result.Language)
}

func TestDetectManifestOutweighsSingleFile(t *testing.T) {
	result := Detect([]FileStat{
		{RelativePath: "go.mod", Size: 50},
		{RelativePath: "scripts/helper.py", Size: 500},
	})
	require.NotNil(t, result.Language)
	assert.Equal(t, "go", *result.Language)
}

func TestDetectFrameworkGatedOnLanguage(t *testing.T) {
	result := Detect([]FileStat{
		{RelativePath: "package.json", Size: 100, ManifestContent: `{"dependencies":{"react":"^18.0.0"}}`},
		{RelativePath: "src/app.js", Size: 500},
	})
	require.NotNil(t, result.Language)
	assert.Equal(t, "javascript", *result.Language)
	require.NotNil(t, result.Framework)
	assert.Equal(t, "React", *result.Framework)
}

func TestDetectNoFilesReportsNil(t *testing.T) {
	result := Detect(nil)
	assert.Nil(t, result.Language)
	assert.Nil(t, result.Framework)
}

func TestToProjectFieldsInvariant(t *testing.T) {
	p := &domain.Project{}
	Detect(nil).ToProjectFields(p)
	assert.Equal(t, "", p.Language)
	assert.Equal(t, "", p.Framework)

	lang := "python"
	Result{Language: &lang}.ToProjectFields(p)
	assert.Equal(t, "python", p.Language)
	assert.Equal(t, "", p.Framework, "framework stays empty when none was detected; a language alone is valid")
}
