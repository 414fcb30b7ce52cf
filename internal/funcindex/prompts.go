package funcindex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/semindex/semindex/internal/analysis"
	"github.com/semindex/semindex/internal/ast"
	"github.com/semindex/semindex/internal/llmprovider"
)

const functionSystemPrompt = `You are a senior software engineer documenting a codebase for semantic search over individual functions. Describe only what the code actually does. Do not invent behavior not present in the source.`

const functionPromptTemplate = `Project: %s
File: %s (%s)
Function: %s, lines %d-%d

Analyze this function and return JSON with exactly these fields:
{"description": "...", "purpose": "...", "input_description": "...", "output_description": "...", "side_effects": ["..."], "complexity": "low|medium|high"}

` + "```%s\n%s\n```"

// functionAnalysis is the FuI analysis result, the spec's per-function
// strict JSON schema.
type functionAnalysis struct {
	Description       string   `json:"description"`
	Purpose           string   `json:"purpose"`
	InputDescription  string   `json:"input_description"`
	OutputDescription string   `json:"output_description"`
	SideEffects       []string `json:"side_effects"`
	Complexity        string   `json:"complexity"`
}

func buildFunctionAnalysisMessages(relPath, language string, fn ast.Function, pa *analysis.Project) []llmprovider.Message {
	userPrompt := fmt.Sprintf(functionPromptTemplate,
		pa.Description.Value, relPath, language, fn.Name, fn.LineStart, fn.LineEnd, language, fn.FullSource)
	return []llmprovider.Message{
		{Role: llmprovider.RoleSystem, Content: functionSystemPrompt},
		{Role: llmprovider.RoleUser, Content: userPrompt},
	}
}

// parseFunctionAnalysis strips a markdown code fence (if any) and decodes
// the strict JSON schema. Complexity is normalized to one of low/medium/high,
// defaulting to medium when absent or unrecognized.
func parseFunctionAnalysis(raw string) (functionAnalysis, error) {
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

	var a functionAnalysis
	if err := json.Unmarshal([]byte(stripped), &a); err != nil {
		return functionAnalysis{}, fmt.Errorf("funcindex: parse function analysis: %w", err)
	}
	switch a.Complexity {
	case "low", "medium", "high":
	default:
		a.Complexity = "medium"
	}
	if a.Description == "" {
		return functionAnalysis{}, fmt.Errorf("funcindex: function analysis missing description")
	}
	return a, nil
}

// fallbackAnalysis builds a minimal analysis from the function's own
// signature when the LLM analysis stage fails, so the function is never
// dropped from the index.
func fallbackAnalysis(fn ast.Function) functionAnalysis {
	kind := "function"
	if fn.IsMethod {
		kind = "method"
	}
	desc := fmt.Sprintf("%s %s", kind, fn.Name)
	if fn.ClassName != "" {
		desc = fmt.Sprintf("%s on %s", desc, fn.ClassName)
	}
	return functionAnalysis{
		Description: desc,
		Purpose:     "unknown (analysis unavailable)",
		Complexity:  "medium",
	}
}

// buildFunctionEmbeddingText is the combined-text representation embedded
// for a function: signature plus the analysis summary, so search can match
// on either the literal name/params or the described behavior.
func buildFunctionEmbeddingText(fn ast.Function, a functionAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(", fn.Name)
	for i, p := range fn.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if p.Type != "" {
			fmt.Fprintf(&b, " %s", p.Type)
		}
	}
	b.WriteString(")")
	if fn.ReturnType != "" {
		fmt.Fprintf(&b, " %s", fn.ReturnType)
	}
	b.WriteString("\n")
	b.WriteString(a.Description)
	if a.Purpose != "" {
		b.WriteString("\n")
		b.WriteString(a.Purpose)
	}
	return b.String()
}
