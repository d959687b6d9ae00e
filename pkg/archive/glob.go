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

package archive

import (
	"path/filepath"
	"strings"
)

// MatchesGlob performs full glob matching with support for:
//   - *   : matches any sequence of non-separator characters
//   - **  : matches any sequence of characters including separators (any depth)
//   - ?   : matches any single non-separator character
//   - [abc], [a-z], [!abc]/[^abc] : character classes
//
// Patterns are matched against the full path; a pattern without a leading
// ** can still match at any depth (implicit **/ prefix). Used for the
// archive ingest's ignore patterns and the analyze command's ignore globs.
func MatchesGlob(path, pattern string) bool {
	pattern = filepath.ToSlash(pattern)

	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
		parts := strings.Split(path, "/")
		for i := range parts {
			subpath := strings.Join(parts[i:], "/")
			if subpath == prefix || strings.HasPrefix(subpath, prefix+"/") {
				return true
			}
		}
	}

	if strings.HasPrefix(pattern, "*.") && !strings.Contains(pattern, "/") {
		ext := pattern[1:]
		return strings.HasSuffix(path, ext)
	}

	if strings.HasPrefix(pattern, "**/") {
		suffix := pattern[3:]
		if path == suffix || strings.HasSuffix(path, "/"+suffix) {
			return true
		}
		if matchGlobPattern(path, suffix) {
			return true
		}
		parts := strings.Split(path, "/")
		for i := range parts {
			subpath := strings.Join(parts[i:], "/")
			if matchGlobPattern(subpath, suffix) {
				return true
			}
		}
		return false
	}

	if !strings.Contains(pattern, "*") && !strings.Contains(pattern, "?") && !strings.Contains(pattern, "[") {
		return path == pattern || strings.HasSuffix(path, "/"+pattern) || strings.HasPrefix(path, pattern+"/")
	}

	if matchGlobPattern(path, pattern) {
		return true
	}

	parts := strings.Split(path, "/")
	for i := range parts {
		subpath := strings.Join(parts[i:], "/")
		if matchGlobPattern(subpath, pattern) {
			return true
		}
	}

	return false
}

func matchGlobPattern(path, pattern string) bool {
	return matchGlobRecursive(path, pattern, 0, 0)
}

func matchGlobRecursive(path, pattern string, pi, pti int) bool {
	for pi < len(path) || pti < len(pattern) {
		if pti >= len(pattern) {
			return false
		}

		if pti+1 < len(pattern) && pattern[pti] == '*' && pattern[pti+1] == '*' {
			nextPti := pti + 2
			if nextPti < len(pattern) && pattern[nextPti] == '/' {
				nextPti++
			}
			if nextPti >= len(pattern) {
				return true
			}
			for i := pi; i <= len(path); i++ {
				if matchGlobRecursive(path, pattern, i, nextPti) {
					return true
				}
			}
			return false
		}

		if pattern[pti] == '*' {
			nextPti := pti + 1
			if nextPti >= len(pattern) {
				return !strings.Contains(path[pi:], "/")
			}
			for i := pi; i <= len(path); i++ {
				if i > pi && path[i-1] == '/' {
					break
				}
				if matchGlobRecursive(path, pattern, i, nextPti) {
					return true
				}
			}
			return false
		}

		if pattern[pti] == '?' {
			if pi >= len(path) || path[pi] == '/' {
				return false
			}
			pi++
			pti++
			continue
		}

		if pattern[pti] == '[' {
			if pi >= len(path) {
				return false
			}
			closeIdx := pti + 1
			if closeIdx < len(pattern) && (pattern[closeIdx] == '!' || pattern[closeIdx] == '^') {
				closeIdx++
			}
			if closeIdx < len(pattern) && pattern[closeIdx] == ']' {
				closeIdx++
			}
			for closeIdx < len(pattern) && pattern[closeIdx] != ']' {
				closeIdx++
			}
			if closeIdx >= len(pattern) {
				if path[pi] != '[' {
					return false
				}
				pi++
				pti++
				continue
			}
			classContent := pattern[pti+1 : closeIdx]
			if !matchCharClass(path[pi], classContent) {
				return false
			}
			pi++
			pti = closeIdx + 1
			continue
		}

		if pi >= len(path) {
			return false
		}
		if path[pi] != pattern[pti] {
			return false
		}
		pi++
		pti++
	}

	return pi == len(path) && pti == len(pattern)
}

func matchCharClass(c byte, class string) bool {
	if len(class) == 0 {
		return false
	}

	negated := false
	idx := 0
	if class[0] == '!' || class[0] == '^' {
		negated = true
		idx = 1
	}

	matched := false
	for idx < len(class) {
		if idx+2 < len(class) && class[idx+1] == '-' {
			low := class[idx]
			high := class[idx+2]
			if c >= low && c <= high {
				matched = true
			}
			idx += 3
			continue
		}
		if c == class[idx] {
			matched = true
		}
		idx++
	}

	if negated {
		return !matched
	}
	return matched
}

// MatchesAny reports whether path matches at least one of patterns.
func MatchesAny(path string, patterns []string) bool {
	normalized := filepath.ToSlash(path)
	for _, p := range patterns {
		if MatchesGlob(normalized, p) {
			return true
		}
	}
	return false
}

// DefaultIgnorePatterns mirrors common VCS/build baseline exclusions, widened
// from a single-repo clone to an uploaded-archive tree.
var DefaultIgnorePatterns = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/.venv/**",
	"**/venv/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/.idea/**",
	"**/.vscode/**",
}
