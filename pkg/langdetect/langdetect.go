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

// Package langdetect weighs a project's FileEntries against a fixed
// extension/manifest ruleset to pick a dominant language and, gated on that
// language, a framework. The extension table is grounded on kraklabs-cie's
// pkg/ingestion/repo_loader.go detectLanguageFromPath map, widened with a
// byte-share weighting step and a floor threshold that the
// teacher's simple per-file tally doesn't need.
package langdetect

import (
	"path/filepath"
	"strings"

	"github.com/forgepath/core/pkg/domain"
)

// FloorWeight is the minimum dominant-language byte share required to report
// a language at all; below it, Detect reports (nil, nil).
const FloorWeight = 0.10

var extensionLanguage = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".rs":    "rust",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cxx":   "cpp",
	".hpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".clj":   "clojure",
	".cljs":  "clojure",
	".sh":    "bash",
	".bash":  "bash",
	".zsh":   "bash",
	".proto": "protobuf",
}

// manifestLanguage weighs manifest filenames more heavily than a single
// source file of that language, since a manifest implies the whole tree.
var manifestLanguage = map[string]string{
	"go.mod":             "go",
	"go.sum":             "go",
	"requirements.txt":   "python",
	"pyproject.toml":     "python",
	"setup.py":           "python",
	"Pipfile":            "python",
	"package.json":       "javascript",
	"tsconfig.json":      "typescript",
	"pom.xml":            "java",
	"build.gradle":       "java",
	"build.gradle.kts":   "java",
	"Cargo.toml":         "rust",
	"CMakeLists.txt":     "cpp",
	"Gemfile":            "ruby",
	"composer.json":      "php",
}

// manifestWeightBytes is the synthetic byte weight credited to a manifest
// hit, large enough to tip a tie-break in a small repository.
const manifestWeightBytes = 50_000

// frameworkSignatures maps a manifest substring to a (language, framework)
// pair; framework detection is gated on the manifest's language matching the
// project's detected language.
type frameworkSignature struct {
	language  string
	substring string
	framework string
}

var frameworkSignatures = []frameworkSignature{
	{"javascript", `"react"`, "React"},
	{"javascript", `"next"`, "Next.js"},
	{"javascript", `"vue"`, "Vue"},
	{"javascript", `"@angular/core"`, "Angular"},
	{"javascript", `"express"`, "Express"},
	{"typescript", `"react"`, "React"},
	{"typescript", `"next"`, "Next.js"},
	{"typescript", `"@nestjs/core"`, "NestJS"},
	{"python", "django", "Django"},
	{"python", "flask", "Flask"},
	{"python", "fastapi", "FastAPI"},
	{"java", "spring-boot", "Spring Boot"},
	{"java", "org.springframework", "Spring"},
	{"go", `"github.com/gin-gonic/gin"`, "Gin"},
	{"go", `"github.com/labstack/echo`, "Echo"},
	{"ruby", "rails", "Rails"},
	{"php", "laravel/framework", "Laravel"},
}

// FileStat is the minimal per-file input Detect needs: its relative path
// and byte size. Callers typically derive this from ContentObject sizes
// joined against FileEntries.
type FileStat struct {
	RelativePath string
	Size         int64
	// ManifestContent is the file's text content, populated only for
	// manifest files, used for framework signature matching. Non-manifest
	// files may leave this empty.
	ManifestContent string
}

// Result is the detector's output: both fields are nil when no language
// clears the floor weight.
type Result struct {
	Language  *string
	Framework *string
}

// Detect weighs files by extension and manifest hits, tie-breaks by total
// byte share, and applies the floor threshold. It never performs I/O; all
// inputs must already be in memory.
func Detect(files []FileStat) Result {
	weight := make(map[string]int64)
	var total int64

	for _, f := range files {
		base := filepath.Base(f.RelativePath)
		ext := strings.ToLower(filepath.Ext(f.RelativePath))

		size := f.Size
		if size <= 0 {
			size = 1
		}

		if lang, ok := manifestLanguage[base]; ok {
			weight[lang] += manifestWeightBytes
			total += manifestWeightBytes
			continue
		}
		if lang, ok := extensionLanguage[ext]; ok {
			weight[lang] += size
			total += size
		}
	}

	if total == 0 {
		return Result{}
	}

	var best string
	var bestWeight int64
	for lang, w := range weight {
		if w > bestWeight || (w == bestWeight && lang < best) {
			best = lang
			bestWeight = w
		}
	}

	if float64(bestWeight)/float64(total) < FloorWeight {
		return Result{}
	}

	result := Result{Language: &best}

	for _, f := range files {
		if f.ManifestContent == "" {
			continue
		}
		for _, sig := range frameworkSignatures {
			if sig.language != best {
				continue
			}
			if strings.Contains(strings.ToLower(f.ManifestContent), strings.ToLower(sig.substring)) {
				fw := sig.framework
				result.Framework = &fw
				return result
			}
		}
	}

	return result
}

// ToProjectFields copies a Result onto a domain.Project's Language/Framework
// fields using the project's empty-string convention for "unknown".
func (r Result) ToProjectFields(p *domain.Project) {
	if r.Language != nil {
		p.Language = *r.Language
	} else {
		p.Language = ""
	}
	if r.Framework != nil {
		p.Framework = *r.Framework
	} else {
		p.Framework = ""
	}
}
