// Package trigger implements the Trigger & Layer Classifier (C6): entry
// point detection and architectural layer tagging for extracted functions.
// No grounding source in the retrieval pack implements route/framework
// detection (neither teacher repo touches it), so the detector set here is
// built directly from the component's own description, using a
// registration-hook design in the same spirit as the teacher's cobra
// command registration (cmd's init()-time AddCommand calls) so new
// frameworks can be added without modifying this package.
package trigger

// Kind is the category of external trigger a function responds to.
type Kind string

const (
	KindHTTP      Kind = "http"
	KindGRPC      Kind = "grpc"
	KindKafka     Kind = "kafka"
	KindScheduled Kind = "scheduled"
	KindWebSocket Kind = "websocket"
	KindGraphQL   Kind = "graphql"
)

// Info is the trigger record attached to an entry-point function. Shape
// depends on Kind: HTTP uses Method/Path, gRPC uses Service/RPCMethod,
// Kafka uses Topic, Scheduled uses Schedule, WebSocket uses Path, GraphQL
// uses Method for the operation type (query/mutation/subscription) and
// Path for the resolver field name.
type Info struct {
	Kind      Kind
	Method    string
	Path      string
	Service   string
	RPCMethod string
	Topic     string
	Schedule  string
}

// Layer is the architectural label assigned to a function.
type Layer string

const (
	LayerTrigger    Layer = "trigger"
	LayerController Layer = "controller"
	LayerService    Layer = "service"
	LayerProvider   Layer = "provider"
	LayerExternal   Layer = "external"
)
