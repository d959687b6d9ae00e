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
	"os"
	"strings"
)

// DefaultProvider creates a provider from environment variables.
// Checks in order: OLLAMA_HOST, OPENAI_API_KEY, ANTHROPIC_API_KEY
// Falls back to mock if nothing is configured.
func DefaultProvider() (Provider, error) {
	// Check for Ollama first (local, free)
	if os.Getenv("OLLAMA_HOST") != "" || os.Getenv("OLLAMA_BASE_URL") != "" || os.Getenv("OLLAMA_MODEL") != "" {
		return NewProvider(ProviderConfig{Type: "ollama"})
	}

	// Check for OpenAI
	if os.Getenv("OPENAI_API_KEY") != "" {
		return NewProvider(ProviderConfig{Type: "openai"})
	}

	// Check for Anthropic
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return NewProvider(ProviderConfig{Type: "anthropic"})
	}

	// Default to mock for development
	return NewProvider(ProviderConfig{Type: "mock"})
}

// ProviderFromEnv creates a provider from a specific environment variable.
// Example: LLM_PROVIDER=ollama will use Ollama.
func ProviderFromEnv(envVar string) (Provider, error) {
	providerType := os.Getenv(envVar)
	if providerType == "" {
		return DefaultProvider()
	}
	return NewProvider(ProviderConfig{Type: providerType})
}

// QuickGenerate is a convenience function for simple text generation.
func QuickGenerate(ctx context.Context, prompt string) (string, error) {
	provider, err := DefaultProvider()
	if err != nil {
		return "", err
	}
	resp, err := provider.Generate(ctx, GenerateRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// QuickChat is a convenience function for simple chat.
func QuickChat(ctx context.Context, messages ...string) (string, error) {
	provider, err := DefaultProvider()
	if err != nil {
		return "", err
	}

	msgs := make([]Message, len(messages))
	for i, m := range messages {
		if i%2 == 0 {
			msgs[i] = Message{Role: "user", Content: m}
		} else {
			msgs[i] = Message{Role: "assistant", Content: m}
		}
	}

	resp, err := provider.Chat(ctx, ChatRequest{Messages: msgs})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// SkillPrompt builds the prompt C5 sends to augment the baseline,
// string/glob-detected skill list with model-inferred skills.
type SkillPrompt struct {
	Languages   []string
	Frameworks  []string
	BaselineSet []string
	Samples     []string // short file excerpts, already truncated by the caller
}

// Build renders the prompt. The caller is expected to pair it with
// SystemPrompts.SkillExtraction as the system message.
func (sp SkillPrompt) Build() string {
	var sb strings.Builder

	sb.WriteString("Detected languages: ")
	sb.WriteString(strings.Join(sp.Languages, ", "))
	sb.WriteString("\n")

	if len(sp.Frameworks) > 0 {
		sb.WriteString("Detected frameworks: ")
		sb.WriteString(strings.Join(sp.Frameworks, ", "))
		sb.WriteString("\n")
	}

	if len(sp.BaselineSet) > 0 {
		sb.WriteString("Already-detected skills (do not repeat these): ")
		sb.WriteString(strings.Join(sp.BaselineSet, ", "))
		sb.WriteString("\n")
	}

	if len(sp.Samples) > 0 {
		sb.WriteString("\nRepresentative file excerpts:\n")
		for _, s := range sp.Samples {
			sb.WriteString("---\n")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nReturn additional skills this project demonstrates as a JSON array of strings, ")
	sb.WriteString("e.g. [\"concurrent programming\", \"REST API design\"]. Return only the array.")

	return sb.String()
}

// BulletPrompt builds the prompt C10 sends to generate resume-style
// bullet points summarizing a project analysis.
type BulletPrompt struct {
	ProjectName string
	Languages   []string
	Role        string
	Highlights  []string // e.g. "412 commits", "highest test coverage", "largest module"
	MaxBullets  int
}

// Build renders the prompt. The caller is expected to pair it with
// SystemPrompts.BulletGeneration as the system message.
func (bp BulletPrompt) Build() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Project: %s\n", bp.ProjectName))
	sb.WriteString("Languages: ")
	sb.WriteString(strings.Join(bp.Languages, ", "))
	sb.WriteString("\n")

	if bp.Role != "" {
		sb.WriteString(fmt.Sprintf("Contributor role: %s\n", bp.Role))
	}

	if len(bp.Highlights) > 0 {
		sb.WriteString("Highlights:\n")
		for _, h := range bp.Highlights {
			sb.WriteString(fmt.Sprintf("- %s\n", h))
		}
	}

	max := bp.MaxBullets
	if max <= 0 {
		max = 3
	}
	sb.WriteString(fmt.Sprintf("\nWrite at most %d resume-style bullet points describing this project's impact. ", max))
	sb.WriteString("Start each bullet with an action verb, stay factual, do not invent metrics not given above. ")
	sb.WriteString("Return a JSON array of strings. Return only the array.")

	return sb.String()
}

// SystemPrompts contains the system prompts used by the skill extractor
// and bullet generator's AI-first stage.
var SystemPrompts = struct {
	SkillExtraction  string
	BulletGeneration string
}{
	SkillExtraction: `You are a precise software engineering analyst. Given a project's
detected languages, frameworks, and a baseline skill list already found by static
detection, identify ADDITIONAL concrete technical skills the project demonstrates
that are not already in the baseline list. Be conservative: only name a skill if
the evidence (languages, frameworks, or file excerpts) clearly supports it. Never
invent skills unrelated to the given evidence. Respond with a JSON array of
strings and nothing else.`,

	BulletGeneration: `You are a technical resume writer. Given a project's languages,
contributor role, and factual highlights, write concise, factual resume bullet
points. Never invent metrics, dates, or outcomes not present in the input. Each
bullet starts with an action verb and describes one concrete contribution.
Respond with a JSON array of strings and nothing else.`,
}

// BuildChatMessages creates a chat message array with system prompt.
func BuildChatMessages(systemPrompt, userPrompt string, history ...Message) []Message {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: userPrompt})
	return messages
}
