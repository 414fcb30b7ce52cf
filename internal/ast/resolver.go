package ast

import "strings"

// ModuleResolver maps an import as written in source (the module path or
// alias target, e.g. "b" in `from b import g` or the import path string
// in a Go/JS import) to the relative path of the file it refers to within
// the project. Callers supply this because module resolution depends on
// language- and project-specific rules (package layout, tsconfig paths,
// a Go module's import prefix) that this package doesn't own.
type ModuleResolver func(importPath string) (relPath string, ok bool)

// FileUnit is one file's extracted functions and imports, the input unit
// the resolver indexes across the whole project.
type FileUnit struct {
	FilePath  string
	Functions []Function
	Imports   []Import
}

type located struct {
	FilePath string
	ID       string
}

// Resolver implements the cross-file call resolution pass: given a global
// function-name index and each file's import statements, it promotes call
// edges from a bare callee name to a resolved callee id with a confidence
// tier. Generalized from kraklabs-cie/pkg/ingestion/resolver.go's
// Go-package-specific CallResolver (which keys everything by directory
// path and Go import strings) into a language-agnostic version driven by
// a caller-supplied ModuleResolver.
type Resolver struct {
	resolve ModuleResolver

	globalIndex map[string][]located          // simple name -> definitions
	fileIndex   map[string]map[string]string  // file -> simple name -> id (same-file)
	fileAliases map[string]map[string]string  // file -> alias -> import path
	fileDotImps map[string][]string           // file -> import paths used as wildcard/dot imports
}

// NewResolver builds an empty resolver; call BuildIndex before Resolve.
func NewResolver(resolve ModuleResolver) *Resolver {
	return &Resolver{
		resolve:     resolve,
		globalIndex: make(map[string][]located),
		fileIndex:   make(map[string]map[string]string),
		fileAliases: make(map[string]map[string]string),
		fileDotImps: make(map[string][]string),
	}
}

// BuildIndex indexes every file's functions and imports. Call once with
// the full project's units before calling Resolve.
func (r *Resolver) BuildIndex(units []FileUnit) {
	for _, u := range units {
		perFile := make(map[string]string, len(u.Functions))
		for _, fn := range u.Functions {
			name := simpleName(fn.Name)
			perFile[name] = fn.ID
			r.globalIndex[name] = append(r.globalIndex[name], located{FilePath: u.FilePath, ID: fn.ID})
		}
		r.fileIndex[u.FilePath] = perFile

		aliases := make(map[string]string, len(u.Imports))
		for _, imp := range u.Imports {
			if imp.Wildcard || imp.Alias == "." {
				r.fileDotImps[u.FilePath] = append(r.fileDotImps[u.FilePath], imp.Path)
				continue
			}
			alias := imp.Alias
			if alias == "" {
				alias = lastPathComponent(imp.Path)
			}
			if alias == "_" {
				continue
			}
			aliases[alias] = imp.Path
		}
		r.fileAliases[u.FilePath] = aliases
	}
}

// Resolve promotes each edge's CalleeID/Confidence in place following the
// specification's four-step ladder and returns the same slice.
func (r *Resolver) Resolve(callerFile string, edges []CallEdge) []CallEdge {
	for i := range edges {
		r.resolveOne(callerFile, &edges[i])
	}
	return edges
}

func (r *Resolver) resolveOne(callerFile string, edge *CallEdge) {
	if edge.CalleeID != "" && edge.Confidence == ConfidenceHigh && edge.CalleeModule == "" {
		// Already resolved same-file by the extractor (step 2).
		return
	}

	// Step 1: module hint present -> resolve alias to a file, look there.
	if edge.CalleeModule != "" {
		if importPath, ok := r.fileAliases[callerFile][edge.CalleeModule]; ok {
			if file, ok := r.resolve(importPath); ok {
				if id, ok := r.fileIndex[file][edge.CalleeName]; ok {
					edge.CalleeID = id
					edge.Confidence = ConfidenceHigh
					return
				}
			}
		}
		// A module hint that fails to resolve should not fall through to
		// the unqualified-name steps below: it named a specific target.
		if edge.CalleeID == "" {
			edge.Confidence = ConfidenceUnresolved
		}
		return
	}

	// Step 2: in-file, no module hint (already attempted by the extractor;
	// re-check here in case the edge was built without that pass).
	if id, ok := r.fileIndex[callerFile][edge.CalleeName]; ok {
		edge.CalleeID = id
		edge.Confidence = ConfidenceHigh
		return
	}

	// Step 3: named imports of that exact name (e.g. "from b import g"
	// binds "g" directly) or a wildcard/dot import of the defining module.
	if importPath, ok := r.fileAliases[callerFile][edge.CalleeName]; ok {
		if file, ok := r.resolve(importPath); ok {
			if id, ok := r.fileIndex[file][edge.CalleeName]; ok {
				edge.CalleeID = id
				edge.Confidence = ConfidenceMedium
				return
			}
		}
	}
	for _, importPath := range r.fileDotImps[callerFile] {
		file, ok := r.resolve(importPath)
		if !ok {
			continue
		}
		if id, ok := r.fileIndex[file][edge.CalleeName]; ok {
			edge.CalleeID = id
			edge.Confidence = ConfidenceMedium
			return
		}
	}

	// Step 4: exactly one definition anywhere in the project.
	if defs := r.globalIndex[edge.CalleeName]; len(defs) == 1 {
		edge.CalleeID = defs[0].ID
		edge.Confidence = ConfidenceLow
		return
	}

	edge.Confidence = ConfidenceUnresolved
}

func lastPathComponent(path string) string {
	path = strings.TrimSuffix(path, "/")
	if idx := strings.LastIndexAny(path, "./"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
