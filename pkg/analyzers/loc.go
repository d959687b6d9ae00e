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

package analyzers

import "strings"

// commentStyle names the line-comment token and the block-comment
// start/end pair for one language family, used by countLines' regex-free
// scan. It doesn't need to be exact — this is a heuristic, not a verifier.
type commentStyle struct {
	line       string
	blockStart string
	blockEnd   string
	hashLine   bool // also treat leading '#' as a line comment (Python/shell)
}

var cLikeComments = commentStyle{line: "//", blockStart: "/*", blockEnd: "*/"}
var hashComments = commentStyle{line: "#", blockStart: `"""`, blockEnd: `"""`, hashLine: true}

// countLines returns (total non-blank lines, comment lines) for content
// under the given comment style. Blank lines count toward neither total
// nor comment_loc, the same blank-line exclusion, single-pass scan, no-AST
// shape as kraklabs-cie's pkg/tools/analyze.go countCodeLines.
func countLines(content []byte, style commentStyle) (total, comment int) {
	inBlock := false
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		total++

		if inBlock {
			comment++
			if style.blockEnd != "" && strings.Contains(trimmed, style.blockEnd) {
				inBlock = false
			}
			continue
		}

		switch {
		case style.line != "" && strings.HasPrefix(trimmed, style.line):
			comment++
		case style.blockStart != "" && strings.HasPrefix(trimmed, style.blockStart):
			comment++
			if !strings.HasSuffix(trimmed, style.blockEnd) || len(trimmed) <= len(style.blockStart) {
				inBlock = true
			}
		}
	}
	return total, comment
}
