package trigger

import (
	"regexp"
	"strings"
	"sync"

	"github.com/semindex/semindex/internal/ast"
)

// Detector inspects one function and its surrounding language context,
// returning a non-nil Info if it recognizes an entry-point pattern.
// Detectors may scan the function's parameters/decorators (AST-derived,
// preferred) or fall back to scanning FullSource text.
type Detector func(fn ast.Function, language string) *Info

var (
	registryMu sync.RWMutex
	registry   = map[string]Detector{}
	order      []string
)

// RegisterDetector adds a named framework detector, resolving the
// specification's open question about which HTTP frameworks to recognize:
// rather than a fixed closed set, callers register additional detectors
// (e.g. for a framework not built in) at init time. Re-registering a name
// replaces the existing detector in place, keeping its original position.
func RegisterDetector(name string, d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; !exists {
		order = append(order, name)
	}
	registry[name] = d
}

// Detect runs every registered detector in registration order and returns
// the first non-nil trigger found. Detection is advisory: callers treat a
// non-nil result as marking fn an entry point.
func Detect(fn ast.Function, language string) *Info {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, name := range order {
		if info := registry[name](fn, language); info != nil {
			return info
		}
	}
	return nil
}

func init() {
	RegisterDetector("go-net-http", goNetHTTPDetector)
	RegisterDetector("go-chi", goChiDetector)
	RegisterDetector("python-flask-fastapi", pythonHTTPDecoratorDetector)
	RegisterDetector("python-celery-schedule", pythonScheduleDecoratorDetector)
	RegisterDetector("js-express", jsExpressDetector)
	RegisterDetector("grpc-service-method", grpcDetector)
	RegisterDetector("kafka-consumer", kafkaDetector)
	RegisterDetector("cron-schedule", cronCommentDetector)
	RegisterDetector("websocket-handler", websocketDetector)
	RegisterDetector("graphql-resolver", graphqlResolverDetector)
}

// goNetHTTPDetector matches a Go handler by its net/http signature:
// func(w http.ResponseWriter, r *http.Request).
func goNetHTTPDetector(fn ast.Function, language string) *Info {
	if language != "go" {
		return nil
	}
	var sawWriter, sawRequest bool
	for _, p := range fn.Parameters {
		if strings.Contains(p.Type, "http.ResponseWriter") {
			sawWriter = true
		}
		if strings.Contains(p.Type, "http.Request") {
			sawRequest = true
		}
	}
	if !sawWriter || !sawRequest {
		return nil
	}
	return &Info{Kind: KindHTTP, Method: httpMethodFromName(fn.Name)}
}

var chiRouteRE = regexp.MustCompile(`\.(Get|Post|Put|Patch|Delete|Head|Options)\s*\(\s*"([^"]+)"\s*,\s*([A-Za-z0-9_.]*` + "`" + `?)`)

// goChiDetector looks for route registration calls naming this function
// inside the same file's source, grounded on the teacher's own chi-based
// cmd/server.go route wiring (go-chi/chi/v5 in the teacher's go.mod).
func goChiDetector(fn ast.Function, language string) *Info {
	if language != "go" {
		return nil
	}
	for _, m := range chiRouteRE.FindAllStringSubmatch(fn.FullSource, -1) {
		if strings.Contains(m[3], fn.Name) {
			return &Info{Kind: KindHTTP, Method: strings.ToUpper(m[1]), Path: m[2]}
		}
	}
	return nil
}

var httpDecoratorRE = regexp.MustCompile(`(?i)\.(get|post|put|patch|delete|route)\s*\(\s*['"]([^'"]+)['"]`)

// pythonHTTPDecoratorDetector recognizes Flask/FastAPI-style route
// decorators captured verbatim by internal/ast's decorator extraction,
// e.g. "app.route('/items')" or "router.get('/items/{id}')".
func pythonHTTPDecoratorDetector(fn ast.Function, language string) *Info {
	if language != "python" {
		return nil
	}
	for _, dec := range fn.Decorators {
		m := httpDecoratorRE.FindStringSubmatch(dec)
		if m == nil {
			continue
		}
		method := strings.ToUpper(m[1])
		if method == "ROUTE" {
			method = methodFromRouteKwargs(dec)
		}
		return &Info{Kind: KindHTTP, Method: method, Path: m[2]}
	}
	return nil
}

var methodsKwargRE = regexp.MustCompile(`methods\s*=\s*\[\s*['"]([A-Za-z]+)['"]`)

func methodFromRouteKwargs(dec string) string {
	if m := methodsKwargRE.FindStringSubmatch(dec); m != nil {
		return strings.ToUpper(m[1])
	}
	return "GET"
}

var scheduleDecoratorRE = regexp.MustCompile(`(?i)(periodic_task|scheduled|cron)\s*\(([^)]*)\)`)

// pythonScheduleDecoratorDetector recognizes celery/cron-style scheduling
// decorators (e.g. "@periodic_task(run_every=crontab(...))").
func pythonScheduleDecoratorDetector(fn ast.Function, language string) *Info {
	if language != "python" {
		return nil
	}
	for _, dec := range fn.Decorators {
		if m := scheduleDecoratorRE.FindStringSubmatch(dec); m != nil {
			return &Info{Kind: KindScheduled, Schedule: strings.TrimSpace(m[2])}
		}
	}
	return nil
}

var jsRouteRE = regexp.MustCompile(`(?:app|router)\.(get|post|put|patch|delete)\s*\(\s*['"]([^'"]+)['"]`)

// jsExpressDetector scans a function's own source for an inline Express
// route registration referencing it, and also matches the common pattern
// where the function literal itself is the route handler argument.
func jsExpressDetector(fn ast.Function, language string) *Info {
	if language != "javascript" && language != "typescript" {
		return nil
	}
	if m := jsRouteRE.FindStringSubmatch(fn.FullSource); m != nil {
		return &Info{Kind: KindHTTP, Method: strings.ToUpper(m[1]), Path: m[2]}
	}
	return nil
}

var grpcServiceRE = regexp.MustCompile(`(?i)(\w+Server|\w+ServiceServer)\)\s+(\w+)\s*\(`)

// grpcDetector matches the generated-server-interface method shape
// ("func (s *fooServer) DoThing(ctx context.Context, req *Req)").
func grpcDetector(fn ast.Function, language string) *Info {
	if language != "go" {
		return nil
	}
	if m := grpcServiceRE.FindStringSubmatch(fn.FullSource); m != nil {
		return &Info{Kind: KindGRPC, Service: m[1], RPCMethod: m[2]}
	}
	return nil
}

var kafkaTopicRE = regexp.MustCompile(`(?i)(kafka\.ConsumeTopic|@(?:kafka_listener|KafkaListener))\s*\(\s*['"(]*topics?\s*[:=]?\s*['"]?([A-Za-z0-9_.\-]+)`)

func kafkaDetector(fn ast.Function, language string) *Info {
	if m := kafkaTopicRE.FindStringSubmatch(fn.FullSource); m != nil {
		return &Info{Kind: KindKafka, Topic: m[2]}
	}
	for _, dec := range fn.Decorators {
		if m := kafkaTopicRE.FindStringSubmatch(dec); m != nil {
			return &Info{Kind: KindKafka, Topic: m[2]}
		}
	}
	return nil
}

var cronRE = regexp.MustCompile(`cron\.(?:AddFunc|Schedule)\s*\(\s*['"]([^'"]+)['"]`)

func cronCommentDetector(fn ast.Function, language string) *Info {
	if m := cronRE.FindStringSubmatch(fn.FullSource); m != nil {
		return &Info{Kind: KindScheduled, Schedule: m[1]}
	}
	return nil
}

var websocketRE = regexp.MustCompile(`(?i)(websocket\.Upgrade|ws\.On\s*\(\s*['"]connection|@(?:socketio|sio)\.on)`)
var websocketPathRE = regexp.MustCompile(`(?:HandleFunc|Handle)\s*\(\s*['"]([^'"]+)['"]`)

func websocketDetector(fn ast.Function, language string) *Info {
	if !websocketRE.MatchString(fn.FullSource) {
		return nil
	}
	info := &Info{Kind: KindWebSocket}
	if m := websocketPathRE.FindStringSubmatch(fn.FullSource); m != nil {
		info.Path = m[1]
	}
	return info
}

var gqlgenResolverRE = regexp.MustCompile(`(?i)\(\s*\w+\s+\*(?:query|mutation|subscription)Resolver\)\s+(\w+)\s*\(`)
var graphqlDecoratorRE = regexp.MustCompile(`(?i)@(strawberry\.field|strawberry\.mutation|graphene\.field)`)

// graphqlResolverDetector recognizes gqlgen-generated resolver method
// signatures ("func (r *queryResolver) Widget(ctx context.Context, ...)")
// and Python strawberry/graphene field decorators, by the same
// text-pattern approach as grpcDetector and pythonHTTPDecoratorDetector
// since no GraphQL framework ships a distinct AST shape in this pack.
func graphqlResolverDetector(fn ast.Function, language string) *Info {
	if language == "go" {
		if m := gqlgenResolverRE.FindStringSubmatch(fn.FullSource); m != nil {
			return &Info{Kind: KindGraphQL, Method: resolverOperationFromSource(fn.FullSource), Path: m[1]}
		}
		return nil
	}
	if language == "python" {
		for _, dec := range fn.Decorators {
			if m := graphqlDecoratorRE.FindStringSubmatch(dec); m != nil {
				op := "query"
				if strings.Contains(strings.ToLower(m[1]), "mutation") {
					op = "mutation"
				}
				return &Info{Kind: KindGraphQL, Method: op, Path: fn.Name}
			}
		}
	}
	return nil
}

func resolverOperationFromSource(src string) string {
	lower := strings.ToLower(src)
	switch {
	case strings.Contains(lower, "mutationresolver"):
		return "mutation"
	case strings.Contains(lower, "subscriptionresolver"):
		return "subscription"
	default:
		return "query"
	}
}

// httpMethodFromName infers an HTTP method from a verb appearing anywhere
// in the handler's name (get; create/post; update/put; delete), checked in
// that order; a name with none of them (e.g. ServeHTTP) gets a blank method.
func httpMethodFromName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "get"):
		return "GET"
	case strings.Contains(lower, "create") || strings.Contains(lower, "post"):
		return "POST"
	case strings.Contains(lower, "update") || strings.Contains(lower, "put"):
		return "PUT"
	case strings.Contains(lower, "delete"):
		return "DELETE"
	default:
		return ""
	}
}
