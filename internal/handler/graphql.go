package handler

import (
	_ "embed"
	"fmt"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
)

//go:embed schema.graphql
var schemaSDL string

// ParseSchema binds the GraphQL schema to resolver.
func ParseSchema(resolver *Resolver) (*graphql.Schema, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	schema, err := graphql.ParseSchema(schemaSDL, resolver, graphql.MaxDepth(12))
	if err != nil {
		return nil, fmt.Errorf("parse graphql schema: %w", err)
	}
	return schema, nil
}

// NewGraphQLHandler serves POSTed GraphQL operations. The caller token must
// already be stored in the request context.
func NewGraphQLHandler(resolver *Resolver) (http.Handler, error) {
	schema, err := ParseSchema(resolver)
	if err != nil {
		return nil, err
	}
	return &relay.Handler{Schema: schema}, nil
}
