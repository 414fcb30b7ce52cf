package funcindex

import (
	"github.com/semindex/semindex/internal/ast"
	"github.com/semindex/semindex/internal/scanner"
	"github.com/semindex/semindex/internal/trigger"
	"github.com/semindex/semindex/internal/vectorstore"
)

// buildFunctionDocument assembles the vector-store document for one
// function, flattening trigger/layer tagging and the analysis result into
// metadata so C11 can filter and shape search results without a second
// lookup.
func buildFunctionDocument(project string, r scanner.FileRecord, fn ast.Function, info *trigger.Info, layer trigger.Layer, a functionAnalysis, embedding []float32) vectorstore.Document {
	meta := map[string]any{
		"relative_path":      fn.FilePath,
		"language":           r.Language,
		"name":               fn.Name,
		"class_name":         fn.ClassName,
		"is_method":          fn.IsMethod,
		"line_start":         fn.LineStart,
		"line_end":           fn.LineEnd,
		"purpose":            a.Purpose,
		"input_description":  a.InputDescription,
		"output_description": a.OutputDescription,
		"side_effects":       vectorstore.EncodeList(a.SideEffects),
		"complexity":         a.Complexity,
		"layer":              string(layer),
		"trigger_kind":       "",
	}
	if info != nil {
		meta["trigger_kind"] = string(info.Kind)
		meta["trigger_method"] = info.Method
		meta["trigger_path"] = info.Path
		meta["trigger_service"] = info.Service
		meta["trigger_rpc_method"] = info.RPCMethod
		meta["trigger_topic"] = info.Topic
		meta["trigger_schedule"] = info.Schedule
	}

	return vectorstore.Document{
		ID:        functionID(project, fn),
		Text:      buildFunctionEmbeddingText(fn, a),
		Embedding: embedding,
		Metadata:  meta,
	}
}
