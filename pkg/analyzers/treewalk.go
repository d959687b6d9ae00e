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

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// nodeCounts tallies how many AST nodes of each interesting type appear in
// one file, keyed by the language-specific node-type table each variant
// passes in.
type nodeCounts map[string]int

// treeWalk parses content with lang and counts every node whose Type() is a
// key of matchTypes, additionally invoking visit (if non-nil) for each
// matched node so callers can inspect node text/children for
// feature-specific detail (decorators, annotations, template parameters,
// ...). Mirrors kraklabs-cie's parser_go.go walk shape: ParseCtx, defer
// tree.Close(), then a recursive descent over RootNode().
//
// Returns (nil, err) only on a parser-level failure (content the grammar
// cannot tokenize at all); per-construct absence is not an error, it's
// just a zero count.
func treeWalk(ctx context.Context, parser *sitter.Parser, content []byte, matchTypes map[string]bool, visit func(n *sitter.Node)) (nodeCounts, error) {
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	counts := make(nodeCounts)
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		t := n.Type()
		if matchTypes[t] {
			counts[t]++
			if visit != nil {
				visit(n)
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return counts, nil
}

// nodeText returns n's source text, or "" for a nil node.
func nodeText(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(content)
}
