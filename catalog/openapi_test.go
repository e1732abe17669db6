package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstoreSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "servers": [{"url": "https://petstore.example.com/v3"}],
  "paths": {
    "/pet": {
      "post": {
        "operationId": "addPet",
        "summary": "Add a new pet to the store",
        "tags": ["pet"],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["name"],
                "properties": {
                  "name": {"type": "string", "description": "Pet name"},
                  "status": {"type": "string", "enum": ["available", "pending", "sold"]}
                }
              }
            }
          }
        }
      }
    },
    "/pet/{petId}": {
      "get": {
        "operationId": "getPetById",
        "summary": "Find pet by ID",
        "tags": ["pet"],
        "parameters": [
          {
            "name": "petId",
            "in": "path",
            "required": true,
            "description": "ID of pet to return",
            "schema": {"type": "integer"}
          }
        ]
      }
    },
    "/store/order": {
      "post": {
        "operationId": "placeOrder",
        "summary": "Place an order",
        "tags": ["store"],
        "requestBody": {
          "content": {
            "application/json": {
              "schema": {"type": "array", "items": {"type": "string"}}
            }
          }
        }
      }
    }
  }
}`

func specServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(petstoreSpec))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func generateAll(t *testing.T, opts GenerateOptions) map[string]*Tool {
	t.Helper()
	srv := specServer(t)
	gen := NewGenerator(GeneratorConfig{}, nil)

	spec, err := gen.LoadSpec(context.Background(), srv.URL)
	require.NoError(t, err)
	tools, err := gen.GenerateTools(spec, opts)
	require.NoError(t, err)

	byName := make(map[string]*Tool, len(tools))
	for _, tool := range tools {
		byName[tool.Name] = tool
	}
	return byName
}

func TestGenerateToolsFlattensObjectBody(t *testing.T) {
	tools := generateAll(t, GenerateOptions{})
	addPet := tools["addPet"]
	require.NotNil(t, addPet)

	assert.Equal(t, "POST", addPet.Endpoint.Method)
	assert.Equal(t, "/pet", addPet.Endpoint.Path)
	assert.Equal(t, "https://petstore.example.com/v3", addPet.Endpoint.BaseURL)
	assert.Equal(t, "Add a new pet to the store", addPet.Description)

	assert.Contains(t, addPet.InputSchema.Properties, "name")
	assert.Contains(t, addPet.InputSchema.Properties, "status")
	assert.Equal(t, []string{"name"}, addPet.InputSchema.Required)
	assert.Equal(t, []string{"available", "pending", "sold"}, addPet.InputSchema.Properties["status"].Enum)
}

func TestGenerateToolsPathParameter(t *testing.T) {
	tools := generateAll(t, GenerateOptions{})
	getPet := tools["getPetById"]
	require.NotNil(t, getPet)

	prop, ok := getPet.InputSchema.Properties["petId"]
	require.True(t, ok)
	assert.Equal(t, "integer", prop.Type)
	assert.Equal(t, []string{"petId"}, getPet.InputSchema.Required)
	assert.Equal(t, []string{"petId"}, getPet.PathParams())
}

func TestGenerateToolsNonObjectBodyWrapped(t *testing.T) {
	tools := generateAll(t, GenerateOptions{})
	order := tools["placeOrder"]
	require.NotNil(t, order)

	body, ok := order.InputSchema.Properties["body"]
	require.True(t, ok)
	assert.Equal(t, "array", body.Type)
	// Body not marked required in the document.
	assert.Empty(t, order.InputSchema.Required)
}

func TestGenerateToolsTagFilters(t *testing.T) {
	tools := generateAll(t, GenerateOptions{IncludeTags: []string{"pet"}})
	assert.Contains(t, tools, "addPet")
	assert.Contains(t, tools, "getPetById")
	assert.NotContains(t, tools, "placeOrder")

	tools = generateAll(t, GenerateOptions{ExcludeTags: []string{"pet"}})
	assert.NotContains(t, tools, "addPet")
	assert.Contains(t, tools, "placeOrder")
}

func TestGenerateToolsBaseURLOverride(t *testing.T) {
	tools := generateAll(t, GenerateOptions{BaseURL: "http://localhost:9999"})
	assert.Equal(t, "http://localhost:9999", tools["addPet"].Endpoint.BaseURL)
}

const singleOpSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Petstore", "version": "0.9.0"},
  "servers": [{"url": "https://petstore.example.com/v3"}],
  "paths": {
    "/pet/{petId}": {
      "get": {"operationId": "getPetById", "summary": "Find pet by ID"}
    }
  }
}`

func TestAccessorObservesSpecChanges(t *testing.T) {
	current := singleOpSpec
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(current))
	}))
	t.Cleanup(srv.Close)

	gen := NewGenerator(GeneratorConfig{}, nil)
	accessor := gen.Accessor(srv.URL, GenerateOptions{})

	first, err := accessor.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// The upstream catalog grows between calls.
	current = petstoreSpec
	second, err := accessor.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 3)
}

func TestLoadSpecMemoizesPerSource(t *testing.T) {
	var fetches int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Write([]byte(petstoreSpec))
	}))
	t.Cleanup(srv.Close)

	gen := NewGenerator(GeneratorConfig{}, nil)
	_, err := gen.LoadSpec(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = gen.LoadSpec(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
}
