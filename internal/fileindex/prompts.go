package fileindex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/semindex/semindex/internal/analysis"
	"github.com/semindex/semindex/internal/chunker"
	"github.com/semindex/semindex/internal/llmprovider"
)

const chunkSystemPrompt = `You are a senior software engineer indexing a codebase for semantic search. Summarize the given code chunk precisely. Do not invent details not present in the code.`

const chunkPromptTemplate = `Project: %s
File: %s (%s), chunk %d of %d, lines %d-%d

Summarize this code chunk in 1-2 sentences for a semantic search index. Return JSON: {"summary": "..."}

` + "```%s\n%s\n```"

// buildChunkAnalysisMessages builds the analyze_file request, carrying
// the chunk, the enclosing file's identity, and the project's current
// description as project_context.
func buildChunkAnalysisMessages(relPath, language string, c chunker.Chunk, pa *analysis.Project) []llmprovider.Message {
	userPrompt := fmt.Sprintf(chunkPromptTemplate,
		pa.Description.Value, relPath, language, c.Index+1, c.Total, c.StartLine, c.EndLine, language, c.Content)
	return []llmprovider.Message{
		{Role: llmprovider.RoleSystem, Content: chunkSystemPrompt},
		{Role: llmprovider.RoleUser, Content: userPrompt},
	}
}

type chunkSummary struct {
	Summary string `json:"summary"`
}

// parseChunkSummary extracts the summary field, falling back to the raw
// (fence-stripped) response text if it isn't valid JSON — a chunk
// analysis failure here is per-unit, not fatal, so a best-effort summary
// is preferable to dropping the chunk.
func parseChunkSummary(raw string) string {
	stripped := strings.TrimSpace(raw)
	if strings.HasPrefix(stripped, "```") {
		lines := strings.Split(stripped, "\n")
		if len(lines) >= 2 {
			end := len(lines)
			if strings.TrimSpace(lines[end-1]) == "```" {
				end--
			}
			stripped = strings.Join(lines[1:end], "\n")
		}
	}
	var s chunkSummary
	if err := json.Unmarshal([]byte(stripped), &s); err == nil && s.Summary != "" {
		return s.Summary
	}
	return stripped
}
