package engine

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/sitechat/internal/llm"
	"github.com/ziadkadry99/sitechat/internal/vectordb"
)

// contextTokenBudget caps how much retrieved content goes into a prompt.
const contextTokenBudget = 3000

const systemPrompt = `You are a helpful assistant answering questions about a website using only the provided website content.

Rules:
- Answer based on the "Website content" sections below. Each section names its source page.
- If the content does not contain enough information to answer, say so plainly instead of guessing.
- Keep answers concise and cite the page title when it helps the user find more detail.
- Never invent URLs, prices, dates, or policies that are not in the content.`

// buildContextBlock formats retrieved matches into a prompt section,
// best match first, trimmed to the token budget.
func buildContextBlock(matches []vectordb.Match) string {
	if len(matches) == 0 {
		return "Website content: (no relevant content was found for this question)"
	}

	var b strings.Builder
	b.WriteString("Website content:\n")
	used := 0
	for i, m := range matches {
		section := fmt.Sprintf("\n[%d] %s (%s)\n%s\n", i+1, m.Metadata.Title, m.Metadata.SourceURL, m.Text)
		cost := llm.EstimateTokens(section)
		if used+cost > contextTokenBudget && used > 0 {
			break
		}
		b.WriteString(section)
		used += cost
	}
	return b.String()
}

// buildMessages assembles the full message list for one question:
// system prompt, retrieved context, a window of recent history, and
// the question itself.
func buildMessages(question string, matches []vectordb.Match, history []ChatMessage, historyLimit int) []llm.Message {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleSystem, Content: buildContextBlock(matches)},
	}

	if historyLimit > 0 && len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return messages
}
