// Package testutil provides shared fixtures and helpers for the bridge's
// test suites.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/apibridge/apibridge/catalog"
)

// TestContext returns a context that expires with the test.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// PetstoreTools returns a small catalog modeled on the petstore API. The
// shapes exercise every requirement path: read operations with path
// parameters, write operations with required and suggestible optional
// fields, and enum-carrying properties.
func PetstoreTools() []*catalog.Tool {
	return []*catalog.Tool{
		{
			Name:        "addPet",
			Description: "Add a new pet to the store",
			InputSchema: catalog.InputSchema{
				Properties: map[string]catalog.Property{
					"name": {Type: "string", Description: "The pet's name", Examples: []string{"Rex"}},
					"status": {
						Type:        "string",
						Description: "Availability in the store",
						Enum:        []string{"available", "pending", "sold"},
					},
					"tags":     {Type: "array", Description: "Free-form labels", Items: &catalog.Property{Type: "string"}},
					"category": {Type: "string", Description: "Pet category"},
				},
				Required: []string{"name"},
			},
			Endpoint: catalog.Endpoint{
				Method:  "POST",
				Path:    "/pet",
				BaseURL: "https://petstore.example.com/v3",
			},
		},
		{
			Name:        "getPetById",
			Description: "Find a pet by its id",
			InputSchema: catalog.InputSchema{
				Properties: map[string]catalog.Property{
					"petId": {Type: "integer", Description: "The id of the pet to fetch"},
				},
			},
			Endpoint: catalog.Endpoint{
				Method:  "GET",
				Path:    "/pet/{petId}",
				BaseURL: "https://petstore.example.com/v3",
			},
			Annotations: catalog.Annotations{ReadOnly: true},
		},
		{
			Name:        "updatePet",
			Description: "Update an existing pet",
			InputSchema: catalog.InputSchema{
				Properties: map[string]catalog.Property{
					"petId": {Type: "integer", Description: "The id of the pet to update"},
					"name":  {Type: "string", Description: "The pet's name"},
					"status": {
						Type: "string",
						Enum: []string{"available", "pending", "sold"},
					},
				},
				Required: []string{"petId"},
			},
			Endpoint: catalog.Endpoint{
				Method:  "PUT",
				Path:    "/pet/{petId}",
				BaseURL: "https://petstore.example.com/v3",
			},
		},
		{
			Name:        "deletePet",
			Description: "Delete a pet from the store",
			InputSchema: catalog.InputSchema{
				Properties: map[string]catalog.Property{
					"petId": {Type: "integer", Description: "The id of the pet to delete"},
				},
				Required: []string{"petId"},
			},
			Endpoint: catalog.Endpoint{
				Method:  "DELETE",
				Path:    "/pet/{petId}",
				BaseURL: "https://petstore.example.com/v3",
			},
		},
		{
			Name:        "findPetsByStatus",
			Description: "List pets filtered by availability status",
			InputSchema: catalog.InputSchema{
				Properties: map[string]catalog.Property{
					"status": {
						Type: "string",
						Enum: []string{"available", "pending", "sold"},
					},
				},
			},
			Endpoint: catalog.Endpoint{
				Method:  "GET",
				Path:    "/pet/findByStatus",
				BaseURL: "https://petstore.example.com/v3",
			},
			Annotations: catalog.Annotations{ReadOnly: true},
		},
	}
}
