package trigger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/semindex/semindex/internal/ast"
)

func TestDetectGoNetHTTPHandler(t *testing.T) {
	fn := ast.Function{
		Name: "GetUser",
		Parameters: []ast.Parameter{
			{Name: "w", Type: "http.ResponseWriter"},
			{Name: "r", Type: "*http.Request"},
		},
	}
	info := Detect(fn, "go")
	require.NotNil(t, info)
	require.Equal(t, KindHTTP, info.Kind)
	require.Equal(t, "GET", info.Method)
}

func TestDetectPythonFlaskDecorator(t *testing.T) {
	fn := ast.Function{
		Name:       "list_items",
		Decorators: []string{"app.route('/items', methods=['POST'])"},
	}
	info := Detect(fn, "python")
	require.NotNil(t, info)
	require.Equal(t, KindHTTP, info.Kind)
	require.Equal(t, "POST", info.Method)
	require.Equal(t, "/items", info.Path)
}

func TestDetectNoTriggerReturnsNil(t *testing.T) {
	fn := ast.Function{Name: "computeTotal", FullSource: "func computeTotal() int { return 1 }"}
	require.Nil(t, Detect(fn, "go"))
}

func TestClassifyTriggerWins(t *testing.T) {
	layer := Classify("GetUser", "internal/handlers/user.go", "go", true, nil, nil)
	require.Equal(t, LayerTrigger, layer)
}

func TestClassifyControllerByPath(t *testing.T) {
	layer := Classify("List", "internal/api/controller/items.go", "go", false, nil, nil)
	require.Equal(t, LayerController, layer)
}

func TestClassifyProviderByImport(t *testing.T) {
	layer := Classify("Save", "internal/store/items.go", "go", false, nil, []string{"gorm.io/repository"})
	require.Equal(t, LayerProvider, layer)
}

func TestClassifyDefaultsToService(t *testing.T) {
	layer := Classify("ComputeTotal", "internal/billing/calc.go", "go", false, nil, nil)
	require.Equal(t, LayerService, layer)
}

func TestPromoteForExternalCalls(t *testing.T) {
	layer := PromoteForExternalCalls(LayerService, []string{"boto3"}, nil)
	require.Equal(t, LayerExternal, layer)

	unchanged := PromoteForExternalCalls(LayerService, []string{"internal/util"}, nil)
	require.Equal(t, LayerService, unchanged)
}

func TestDetectGraphQLResolver(t *testing.T) {
	fn := ast.Function{
		Name:       "Widget",
		FullSource: "func (r *queryResolver) Widget(ctx context.Context, id string) (*model.Widget, error) { return nil, nil }",
	}
	info := Detect(fn, "go")
	require.NotNil(t, info)
	require.Equal(t, KindGraphQL, info.Kind)
	require.Equal(t, "query", info.Method)
	require.Equal(t, "Widget", info.Path)
}

func TestDetectGraphQLStrawberryMutation(t *testing.T) {
	fn := ast.Function{Name: "create_widget", Decorators: []string{"@strawberry.mutation"}}
	info := Detect(fn, "python")
	require.NotNil(t, info)
	require.Equal(t, KindGraphQL, info.Kind)
	require.Equal(t, "mutation", info.Method)
}

func TestRegisterDetectorCustomFramework(t *testing.T) {
	RegisterDetector("test-only-framework", func(fn ast.Function, language string) *Info {
		if fn.Name == "customEntry" {
			return &Info{Kind: KindScheduled, Schedule: "@every 5m"}
		}
		return nil
	})
	info := Detect(ast.Function{Name: "customEntry"}, "go")
	require.NotNil(t, info)
	require.Equal(t, KindScheduled, info.Kind)
}
