package vectordb

import (
	"fmt"
	"strings"
)

// FormatMatches renders query matches as human-readable text for CLI output.
func FormatMatches(matches []Match) string {
	if len(matches) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(matches)))

	for i, m := range matches {
		sb.WriteString(fmt.Sprintf("--- Result %d (score: %.4f) ---\n", i+1, m.Score))

		if m.Metadata.SourceURL != "" {
			location := m.Metadata.SourceURL
			if m.Metadata.TotalChunks > 1 {
				location += fmt.Sprintf(" (chunk %d/%d)", m.Metadata.ChunkIndex+1, m.Metadata.TotalChunks)
			}
			sb.WriteString(fmt.Sprintf("Source: %s\n", location))
		}
		if m.Metadata.Title != "" {
			sb.WriteString(fmt.Sprintf("Title: %s\n", m.Metadata.Title))
		}

		sb.WriteString("\n")
		sb.WriteString(m.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
