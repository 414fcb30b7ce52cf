// Package chunker implements the Chunker (C8): splitting file content into
// token-bounded chunks, preferring declaration boundaries over mid-
// statement splits, with tail-overlap carried into the next chunk.
// Grounded on ziadkadry99-auto-doc/internal/indexer/chunk.go's
// SplitLargeFile (token-estimate-by-chars, line-accumulating greedy
// splitter), extended with declaration-boundary lookback and overlap per
// the specification's requirements that SplitLargeFile doesn't implement.
package chunker

import (
	"strings"
)

// charsPerToken is the same rough token estimate SplitLargeFile uses.
const charsPerToken = 4

// EstimateTokens is the deterministic token estimator used throughout this
// package and by callers sizing rate-limit requests for a chunk's content.
func EstimateTokens(content string) int {
	return (len(content) + charsPerToken - 1) / charsPerToken
}

// Chunk is a file-relative segment, per the specification's Chunk record.
type Chunk struct {
	Content   string
	Index     int
	Total     int
	StartLine int
	EndLine   int
}

// declarationPrefixes are the top-level declaration starts this package
// recognizes per language, used to prefer a split point over a mid-
// declaration line break. Unlisted languages fall back to pure greedy
// accumulation, matching the teacher's original behavior exactly.
var declarationPrefixes = map[string][]string{
	"go":         {"func ", "type ", "const ", "var "},
	"python":     {"def ", "class ", "async def "},
	"javascript": {"function ", "class ", "export function ", "export class ", "export default function "},
	"typescript": {"function ", "class ", "export function ", "export class ", "export default function ", "interface ", "export interface "},
	"kotlin":     {"fun ", "class ", "object ", "suspend fun "},
}

func isDeclarationStart(line, language string) bool {
	// Only unindented lines count as a top-level declaration boundary.
	if line != strings.TrimLeft(line, " \t") {
		return false
	}
	for _, prefix := range declarationPrefixes[language] {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

type lineGroup struct {
	lines     []string
	startLine int // 1-indexed
	endLine   int
}

// Split divides content into Chunks bounded by maxTokens, with up to
// overlapTokens of trailing content from each chunk carried into the next.
// If content fits within a single chunk, it is returned unsplit.
func Split(content, language string, maxTokens, overlapTokens int) []Chunk {
	maxChars := maxTokens * charsPerToken
	if EstimateTokens(content) <= maxTokens {
		return []Chunk{{Content: content, Index: 0, Total: 1, StartLine: 1, EndLine: lineCount(content)}}
	}

	groups := splitIntoGroups(content, language, maxChars)
	overlapChars := overlapTokens * charsPerToken

	chunks := make([]Chunk, len(groups))
	for i, g := range groups {
		c := Chunk{
			Content:   strings.Join(g.lines, "\n"),
			Index:     i,
			Total:     len(groups),
			StartLine: g.startLine,
			EndLine:   g.endLine,
		}
		if i > 0 {
			overlapLines, overlapStart := tailOverlap(groups[i-1], overlapChars)
			if len(overlapLines) > 0 {
				c.Content = strings.Join(overlapLines, "\n") + "\n" + c.Content
				c.StartLine = overlapStart
			}
		}
		chunks[i] = c
	}
	return chunks
}

// splitIntoGroups performs the greedy line accumulation, preferring to
// flush at the most recent declaration boundary within the current
// accumulation when one exists, so a chunk break doesn't land mid-function.
func splitIntoGroups(content, language string, maxChars int) []lineGroup {
	lines := strings.Split(content, "\n")

	var groups []lineGroup
	var current []string
	currentLen := 0
	groupStart := 1
	lastBoundary := -1 // index into current, -1 if none seen yet

	flush := func(upTo int) {
		if len(current[:upTo]) == 0 {
			return
		}
		groups = append(groups, lineGroup{
			lines:     append([]string(nil), current[:upTo]...),
			startLine: groupStart,
			endLine:   groupStart + upTo - 1,
		})
		rest := current[upTo:]
		groupStart = groupStart + upTo
		current = append([]string(nil), rest...)
		currentLen = 0
		for _, l := range current {
			currentLen += len(l) + 1
		}
		lastBoundary = -1
	}

	for _, line := range lines {
		lineLen := len(line) + 1
		if currentLen+lineLen > maxChars && len(current) > 0 {
			if lastBoundary > 0 {
				flush(lastBoundary)
			} else {
				flush(len(current))
			}
		}
		if isDeclarationStart(line, language) {
			lastBoundary = len(current)
		}
		current = append(current, line)
		currentLen += lineLen
	}
	if len(current) > 0 {
		flush(len(current))
	}
	return groups
}

// tailOverlap returns the trailing lines of g whose combined length is
// within budget chars, and the original 1-indexed line number the overlap
// starts at.
func tailOverlap(g lineGroup, budget int) ([]string, int) {
	if budget <= 0 {
		return nil, 0
	}
	total := 0
	start := len(g.lines)
	for start > 0 {
		candidate := len(g.lines[start-1]) + 1
		if total+candidate > budget {
			break
		}
		total += candidate
		start--
	}
	if start == len(g.lines) {
		return nil, 0
	}
	return g.lines[start:], g.startLine + start
}

func lineCount(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}
