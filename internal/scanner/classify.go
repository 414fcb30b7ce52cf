package scanner

import (
	"path/filepath"
	"strings"
)

// Classification categorizes a file record per the specification's
// File record type.
type Classification string

const (
	ClassCode          Classification = "code"
	ClassTest          Classification = "test"
	ClassDocumentation Classification = "documentation"
	ClassConfig        Classification = "config"
)

var configLanguages = map[string]bool{
	"yaml": true, "json": true, "toml": true, "ini": true, "xml": true,
	"gomod": true, "gosum": true, "dockerfile": true, "makefile": true,
	"terraform": true,
}

var docLanguages = map[string]bool{
	"markdown": true, "text": true,
}

// Classify assigns the classification of a file given its detected
// language and relative path, following the teacher's isTestFile heuristic
// (internal/walker/walker.go) generalized beyond Go/Python/JS.
func Classify(relPath, language string) Classification {
	if isTestPath(relPath) {
		return ClassTest
	}
	if docLanguages[language] {
		return ClassDocumentation
	}
	if configLanguages[language] {
		return ClassConfig
	}
	return ClassCode
}

func isTestPath(relPath string) bool {
	lower := strings.ToLower(relPath)
	base := filepath.Base(lower)

	if strings.HasSuffix(base, "_test.go") {
		return true
	}
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py") {
		return true
	}
	for _, suffix := range []string{".test.js", ".test.ts", ".test.tsx", ".spec.js", ".spec.ts", ".spec.tsx"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}

	slashed := filepath.ToSlash(lower)
	if strings.Contains(slashed, "/test/") || strings.Contains(slashed, "/tests/") ||
		strings.HasPrefix(slashed, "test/") || strings.HasPrefix(slashed, "tests/") {
		return true
	}
	return false
}
