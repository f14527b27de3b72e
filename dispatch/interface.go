// Package dispatch defines how the entity cache issues queries to the
// root-cause search backends. The cache does not know how queries are
// transported; it only needs each call to complete once with a decoded list
// of entities or an error.
package dispatch

import (
	"context"

	"github.com/thirdeye/go-rootcause/model"
	"github.com/thirdeye/go-rootcause/urn"
)

// Dispatcher is the interface implemented by query transports.
type Dispatcher interface {
	// FetchFramework runs a relevance search for the framework within the
	// search context. No related entities is an empty list without error.
	FetchFramework(context.Context, model.Framework, model.SearchContext) ([]model.Entity, error)
	// FetchIdentity looks up entity metadata for the given URNs.
	FetchIdentity(context.Context, urn.Set) ([]model.Entity, error)
}

// Funcs adapts a pair of functions to the Dispatcher interface. A nil
// function returns no entities.
type Funcs struct {
	Framework func(context.Context, model.Framework, model.SearchContext) ([]model.Entity, error)
	Identity  func(context.Context, urn.Set) ([]model.Entity, error)
}

// Funcs must implement Dispatcher.
var _ Dispatcher = Funcs{}

func (f Funcs) FetchFramework(ctx context.Context, fw model.Framework, sc model.SearchContext) ([]model.Entity, error) {
	if f.Framework == nil {
		return nil, nil
	}
	return f.Framework(ctx, fw, sc)
}

func (f Funcs) FetchIdentity(ctx context.Context, urns urn.Set) ([]model.Entity, error) {
	if f.Identity == nil {
		return nil, nil
	}
	return f.Identity(ctx, urns)
}
