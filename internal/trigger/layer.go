package trigger

import "strings"

type layerRule struct {
	layer            Layer
	pathSubstrings   []string
	decoratorSubstrs []string
}

// layerRules is evaluated trigger → controller → service → provider →
// external, first match wins, per the component's description. The
// "service" tier has no rule entry: it is the default when nothing else
// matches, since most function bodies are unclassified business logic.
var layerRules = []layerRule{
	{LayerController, []string{"controller", "/api/", "handler", "route", "endpoint"}, []string{"controller", "restcontroller"}},
	{LayerProvider, []string{"provider", "repository", "/repo", "dao", "client", "gateway", "adapter", "/infra"}, []string{"provider", "repository"}},
	{LayerExternal, []string{"/external/", "/vendor/", "thirdparty", "third_party"}, nil},
}

// Classify assigns an architectural layer to a function, a pure function
// of its identifying attributes and static context: no call graph input,
// so calling it twice with the same arguments always yields the same
// layer (the third-party-call promotion is a separate step, see
// PromoteForExternalCalls, since it needs the resolved call edges that
// this signature deliberately excludes).
func Classify(name, path, language string, hasTrigger bool, decorators []string, imports []string) Layer {
	if hasTrigger {
		return LayerTrigger
	}

	lowerPath := strings.ToLower(path)
	lowerDecs := make([]string, len(decorators))
	for i, d := range decorators {
		lowerDecs[i] = strings.ToLower(d)
	}
	lowerImps := make([]string, len(imports))
	for i, imp := range imports {
		lowerImps[i] = strings.ToLower(imp)
	}

	for _, rule := range layerRules {
		for _, s := range rule.pathSubstrings {
			if strings.Contains(lowerPath, s) {
				return rule.layer
			}
		}
		for _, dec := range lowerDecs {
			for _, s := range rule.decoratorSubstrs {
				if strings.Contains(dec, s) {
					return rule.layer
				}
			}
		}
		// A provider/controller-tagged import (e.g. importing an ORM or
		// an HTTP router package) seeds the same classification a path
		// segment would, since not every project names directories after
		// their layer.
		for _, imp := range lowerImps {
			for _, s := range rule.pathSubstrings {
				if strings.Contains(imp, s) {
					return rule.layer
				}
			}
		}
	}

	return LayerService
}

// knownThirdPartyNamespaces is a seed list of import/module prefixes that
// identify an external SDK or client library rather than in-project code.
// Not exhaustive by design — callers with a richer project manifest can
// supply their own predicate to PromoteForExternalCalls instead.
var knownThirdPartyNamespaces = []string{
	"boto3", "aws-sdk", "google.cloud", "stripe", "requests", "axios",
	"http.Client", "net/http", "sqlalchemy", "redis", "kafka", "grpc",
	"openai", "github.com/aws/", "google.golang.org/",
}

// IsKnownThirdPartyModule reports whether module looks like a reference
// to a third-party SDK/client namespace rather than project-local code.
func IsKnownThirdPartyModule(module string) bool {
	lower := strings.ToLower(module)
	for _, ns := range knownThirdPartyNamespaces {
		if strings.Contains(lower, strings.ToLower(ns)) {
			return true
		}
	}
	return false
}

// PromoteForExternalCalls raises layer to LayerExternal if any of the
// caller's resolved or unresolved call module hints name a known
// third-party namespace, per the component's call-graph-aware rule that
// Classify's pure signature can't express on its own.
func PromoteForExternalCalls(layer Layer, calleeModules []string, isThirdParty func(module string) bool) Layer {
	if layer == LayerExternal || layer == LayerTrigger {
		return layer
	}
	if isThirdParty == nil {
		isThirdParty = IsKnownThirdPartyModule
	}
	for _, m := range calleeModules {
		if m == "" {
			continue
		}
		if isThirdParty(m) {
			return LayerExternal
		}
	}
	return layer
}
