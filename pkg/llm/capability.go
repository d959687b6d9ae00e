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

package llm

import (
	"context"
	"fmt"
	"time"
)

// Completer is the narrow capability the pipeline's core consumes: a
// prompt and an optional schema hint go in, a raw completion string comes
// out. It is deliberately smaller than Provider so that callers which only
// need single-shot completions (skill augmentation, bullet generation)
// don't have to reason about chat history or streaming.
type Completer interface {
	Complete(ctx context.Context, prompt, schemaHint string, deadline time.Time) (string, error)
}

// ProviderCompleter adapts a Provider to the Completer contract.
type ProviderCompleter struct {
	Provider Provider
	Model    string
}

// NewCompleter wraps a Provider as a Completer using an optional model override.
func NewCompleter(provider Provider, model string) *ProviderCompleter {
	return &ProviderCompleter{Provider: provider, Model: model}
}

// Complete issues a single chat turn: schemaHint (if non-empty) is folded
// into the system message so the model knows what shape of JSON is
// expected, and the call is bounded by deadline.
func (c *ProviderCompleter) Complete(ctx context.Context, prompt, schemaHint string, deadline time.Time) (string, error) {
	if c.Provider == nil {
		return "", fmt.Errorf("llm: no provider configured")
	}

	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	messages := make([]Message, 0, 2)
	if schemaHint != "" {
		messages = append(messages, Message{Role: "system", Content: schemaHint})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	resp, err := c.Provider.Chat(ctx, ChatRequest{
		Messages:    messages,
		Model:       c.Model,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// ExtractJSONArray finds the first top-level, bracket-balanced `[ ... ]`
// substring in s, tolerating surrounding prose ("Here are the bullets:
// [...]  Let me know if ..."). It does not attempt to validate the
// contents as JSON beyond bracket balance; callers still run
// encoding/json.Unmarshal on the result.
//
// Returns ("", false) if no balanced top-level array is found.
func ExtractJSONArray(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[':
			if depth == 0 {
				start = i
			}
			depth++
		case ']':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
