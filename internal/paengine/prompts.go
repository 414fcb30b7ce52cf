package paengine

import (
	"fmt"
	"strings"

	"github.com/semindex/semindex/internal/analysis"
	"github.com/semindex/semindex/internal/llmprovider"
)

// systemPrompt mirrors the teacher's terse role-setting system message.
const systemPrompt = `You are a senior software engineer building a structured understanding of an unfamiliar repository. Be precise and factual. Do not invent details that are not present in the provided tree or file contents.`

const updatePromptTemplate = `You are iteratively refining a structured understanding of a software project. Given the project tree, your current understanding, and the contents of newly-read files, return a JSON object with exactly these fields:

{
  "description": "1-3 sentence description of what this project is and does",
  "description_confidence": 0,
  "languages": ["list of programming languages used"],
  "languages_confidence": 0,
  "frameworks": ["list of frameworks/major libraries in use"],
  "frameworks_confidence": 0,
  "modules": ["list of top-level modules or components"],
  "modules_confidence": 0,
  "entry_points": ["list of files or commands that start the program"],
  "entry_points_confidence": 0,
  "architecture": "1-3 sentence description of the architectural style",
  "architecture_confidence": 0,
  "next_path": ["relative paths of files you want to read next to improve confidence, empty if none"],
  "reasoning": "one sentence explaining the next_path choice"
}

Each *_confidence field is an integer from 0 (no evidence) to 100 (certain) reflecting how well-supported that field's value is by the tree and file contents you have seen so far across all iterations, not just this one. Only raise a confidence above what you already believe is justified by genuinely new evidence.

Current understanding:
%s

Project tree:
%s

Newly-read file contents:
%s
`

const fallbackPromptTemplate = `Summarize this project in 2-3 sentences based on the files below. Return JSON: {"description": "...", "description_confidence": 50, "languages": [], "languages_confidence": 0, "frameworks": [], "frameworks_confidence": 0, "modules": [], "modules_confidence": 0, "entry_points": [], "entry_points_confidence": 0, "architecture": "", "architecture_confidence": 0, "next_path": [], "reasoning": ""}

Project tree:
%s

File contents:
%s
`

func summarizeState(state *analysis.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "description (confidence %d): %s\n", state.Description.Confidence, state.Description.Value)
	fmt.Fprintf(&b, "languages (confidence %d): %v\n", state.Languages.Confidence, state.Languages.Value)
	fmt.Fprintf(&b, "frameworks (confidence %d): %v\n", state.Frameworks.Confidence, state.Frameworks.Value)
	fmt.Fprintf(&b, "modules (confidence %d): %v\n", state.Modules.Confidence, state.Modules.Value)
	fmt.Fprintf(&b, "entry_points (confidence %d): %v\n", state.EntryPoints.Confidence, state.EntryPoints.Value)
	fmt.Fprintf(&b, "architecture (confidence %d): %s\n", state.Architecture.Confidence, state.Architecture.Value)
	return b.String()
}

func renderContexts(contexts []fileContext) string {
	var b strings.Builder
	for _, c := range contexts {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", c.RelPath, c.Content)
	}
	return b.String()
}

func buildMessages(state *analysis.Project, tree string, contexts []fileContext, temperature float64) []llmprovider.Message {
	userPrompt := fmt.Sprintf(updatePromptTemplate, summarizeState(state), tree, renderContexts(contexts))
	return []llmprovider.Message{
		{Role: llmprovider.RoleSystem, Content: systemPrompt},
		{Role: llmprovider.RoleUser, Content: userPrompt},
	}
}

func buildFallbackMessages(tree string, contexts []fileContext) []llmprovider.Message {
	userPrompt := fmt.Sprintf(fallbackPromptTemplate, tree, renderContexts(contexts))
	return []llmprovider.Message{
		{Role: llmprovider.RoleSystem, Content: systemPrompt},
		{Role: llmprovider.RoleUser, Content: userPrompt},
	}
}
