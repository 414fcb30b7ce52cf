package scanner

import (
	"path/filepath"
	"strings"
)

// extensionToLanguage maps file extensions to normalized language tags.
var extensionToLanguage = map[string]string{
	".go":      "go",
	".py":      "python",
	".pyi":     "python",
	".ts":      "typescript",
	".tsx":     "typescript",
	".mts":     "typescript",
	".js":      "javascript",
	".jsx":     "javascript",
	".mjs":     "javascript",
	".cjs":     "javascript",
	".java":    "java",
	".rs":      "rust",
	".c":       "c",
	".h":       "c",
	".cpp":     "cpp",
	".cc":      "cpp",
	".cxx":     "cpp",
	".hpp":     "cpp",
	".hxx":     "cpp",
	".cs":      "csharp",
	".rb":      "ruby",
	".php":     "php",
	".swift":   "swift",
	".kt":      "kotlin",
	".kts":     "kotlin",
	".scala":   "scala",
	".sh":      "shell",
	".bash":    "shell",
	".zsh":     "shell",
	".sql":     "sql",
	".html":    "html",
	".htm":     "html",
	".css":     "css",
	".scss":    "css",
	".sass":    "css",
	".less":    "css",
	".yaml":    "yaml",
	".yml":     "yaml",
	".json":    "json",
	".toml":    "toml",
	".tf":      "terraform",
	".tfvars":  "terraform",
	".md":      "markdown",
	".markdown": "markdown",
	".rst":     "markdown",
	".proto":   "protobuf",
	".lua":     "lua",
	".dart":    "dart",
	".ex":      "elixir",
	".exs":     "elixir",
	".hs":      "haskell",
	".pl":      "perl",
	".pm":      "perl",
	".vue":     "vue",
	".svelte":  "svelte",
	".xml":     "xml",
	".ini":     "ini",
	".cfg":     "ini",
	".txt":     "text",
}

// filenameToLanguage maps exact (case-sensitive) filenames to language tags.
var filenameToLanguage = map[string]string{
	"Dockerfile":          "dockerfile",
	"Makefile":            "makefile",
	"Jenkinsfile":         "groovy",
	"Vagrantfile":         "ruby",
	"Gemfile":             "ruby",
	"Rakefile":            "ruby",
	"docker-compose.yml":  "yaml",
	"docker-compose.yaml": "yaml",
	"go.mod":              "gomod",
	"go.sum":              "gosum",
}

// binaryExtensions are skipped without a content sniff.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".exe": true,
	".dll": true, ".so": true, ".dylib": true, ".bin": true, ".wasm": true,
	".pyc": true, ".class": true, ".jar": true,
}

// DetectLanguage returns the normalized language tag for filename, or
// "unknown" if unrecognized.
func DetectLanguage(filename string) string {
	base := filepath.Base(filename)
	if lang, ok := filenameToLanguage[base]; ok {
		return lang
	}
	ext := strings.ToLower(filepath.Ext(base))
	if ext == "" {
		return "unknown"
	}
	if lang, ok := extensionToLanguage[ext]; ok {
		return lang
	}
	return "unknown"
}

func isKnownBinaryExt(filename string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(filename))]
}
