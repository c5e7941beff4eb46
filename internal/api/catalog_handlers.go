package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/arabicbase/arabicbase/internal/api/dto"
	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/events"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalogs/{kind}",
		Summary:     "List catalog",
		Description: "Returns every dialect or category name, ordered by name",
		Tags:        []string{"Catalogs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSubscriptions",
		Method:      http.MethodGet,
		Path:        "/api/v1/subscriptions/{kind}",
		Summary:     "List subscriptions",
		Description: "Returns the dialects or categories the caller subscribed to",
		Tags:        []string{"Catalogs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSubscriptions)

	huma.Register(s.api, huma.Operation{
		OperationID:   "subscribe",
		Method:        http.MethodPost,
		Path:          "/api/v1/subscriptions/{kind}",
		Summary:       "Subscribe",
		Description:   "Creates the catalog item if needed and links the caller to it",
		Tags:          []string{"Catalogs"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleSubscribe)

	huma.Register(s.api, huma.Operation{
		OperationID:   "unsubscribe",
		Method:        http.MethodDelete,
		Path:          "/api/v1/subscriptions/{kind}",
		Summary:       "Unsubscribe",
		Description:   "Removes the caller's link. The global catalog item stays.",
		Tags:          []string{"Catalogs"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleUnsubscribe)

	huma.Register(s.api, huma.Operation{
		OperationID: "listConcepts",
		Method:      http.MethodGet,
		Path:        "/api/v1/concepts",
		Summary:     "List concept names",
		Description: "Returns every concept name, ordered by name",
		Tags:        []string{"Catalogs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListConcepts)
}

// CatalogKindInput selects a catalog.
type CatalogKindInput struct {
	Kind string `path:"kind" enum:"dialect,category" doc:"Catalog kind"`
}

// NameListOutput wraps a list of names for Huma.
type NameListOutput struct {
	Body dto.ListResponse[string]
}

func (s *Server) handleListCatalog(ctx context.Context, input *CatalogKindInput) (*NameListOutput, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	names, err := sess.GetCatalog(ctx, domain.CatalogKind(input.Kind))
	if err != nil {
		return nil, err
	}
	return &NameListOutput{Body: dto.NewList(names)}, nil
}

func (s *Server) handleListSubscriptions(ctx context.Context, input *CatalogKindInput) (*NameListOutput, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	names, err := sess.GetSubscriptions(ctx, domain.CatalogKind(input.Kind))
	if err != nil {
		return nil, err
	}
	return &NameListOutput{Body: dto.NewList(names)}, nil
}

// SubscribeInput wraps the subscribe request for Huma.
type SubscribeInput struct {
	Kind string `path:"kind" enum:"dialect,category" doc:"Catalog kind"`
	Body dto.CatalogRequest
}

func (s *Server) handleSubscribe(ctx context.Context, input *SubscribeInput) (*struct{}, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	kind := domain.CatalogKind(input.Kind)
	if err := sess.Subscribe(ctx, kind, input.Body.Name); err != nil {
		return nil, err
	}
	s.publish(events.NewCatalogEvent(sess.UserID(), events.CatalogData{Kind: kind, Name: input.Body.Name}))
	return nil, nil
}

// UnsubscribeInput names the subscription to remove.
type UnsubscribeInput struct {
	Kind string `path:"kind" enum:"dialect,category" doc:"Catalog kind"`
	Name string `query:"name" required:"true" minLength:"1" doc:"Dialect or category name"`
}

func (s *Server) handleUnsubscribe(ctx context.Context, input *UnsubscribeInput) (*struct{}, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	kind := domain.CatalogKind(input.Kind)
	if err := sess.Unsubscribe(ctx, kind, input.Name); err != nil {
		return nil, err
	}
	s.publish(events.NewCatalogEvent(sess.UserID(), events.CatalogData{Kind: kind, Name: input.Name, Removed: true}))
	return nil, nil
}

func (s *Server) handleListConcepts(ctx context.Context, _ *struct{}) (*NameListOutput, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	names, err := sess.GetConceptNames(ctx)
	if err != nil {
		return nil, err
	}
	return &NameListOutput{Body: dto.NewList(names)}, nil
}
