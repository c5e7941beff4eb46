package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/arabicbase/arabicbase/internal/api/dto"
	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/events"
	"github.com/arabicbase/arabicbase/internal/store"
)

func (s *Server) registerEntryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listEntries",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries",
		Summary:     "List entries",
		Description: "Returns the caller's entries, or every entry for the global scope, newest first",
		Tags:        []string{"Entries"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListEntries)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveEntry",
		Method:      http.MethodPut,
		Path:        "/api/v1/entries/{id}",
		Summary:     "Save entry",
		Description: "Creates or replaces one of the caller's entries and resolves its concept",
		Tags:        []string{"Entries"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSaveEntry)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteEntry",
		Method:        http.MethodDelete,
		Path:          "/api/v1/entries/{id}",
		Summary:       "Delete entry",
		Description:   "Deletes one of the caller's entries. Unknown ids succeed.",
		Tags:          []string{"Entries"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteEntriesByCatalog",
		Method:      http.MethodDelete,
		Path:        "/api/v1/catalogs/{kind}/entries",
		Summary:     "Delete entries by catalog",
		Description: "Deletes the caller's entries filed under a dialect or category",
		Tags:        []string{"Entries"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteEntriesByCatalog)
}

// ListEntriesInput contains parameters for listing entries.
type ListEntriesInput struct {
	Scope string `query:"scope" enum:"mine,global" default:"mine" doc:"Which entries to return"`
}

// ListEntriesOutput wraps the entry list for Huma.
type ListEntriesOutput struct {
	Body dto.ListResponse[*domain.Entry]
}

func (s *Server) handleListEntries(ctx context.Context, input *ListEntriesInput) (*ListEntriesOutput, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := sess.GetEntries(ctx, store.Scope(input.Scope))
	if err != nil {
		return nil, err
	}
	return &ListEntriesOutput{Body: dto.NewList(entries)}, nil
}

// SaveEntryInput wraps the save entry request for Huma.
type SaveEntryInput struct {
	ID   string `path:"id" minLength:"1" maxLength:"64" doc:"Entry ID"`
	Body dto.EntryRequest
}

// SaveEntryOutput wraps the saved entry identity for Huma.
type SaveEntryOutput struct {
	Body dto.SavedEntry
}

func (s *Server) handleSaveEntry(ctx context.Context, input *SaveEntryInput) (*SaveEntryOutput, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	e := input.Body.ToEntry(input.ID)
	if err := sess.SaveEntry(ctx, e); err != nil {
		return nil, err
	}

	s.publish(events.NewEntryEvent(events.EntryUpdated, e))
	return &SaveEntryOutput{Body: dto.SavedEntry{
		ID:        e.ID,
		OwnerID:   e.OwnerID,
		ConceptID: e.ConceptID,
	}}, nil
}

// EntryIDInput identifies an entry.
type EntryIDInput struct {
	ID string `path:"id" doc:"Entry ID"`
}

func (s *Server) handleDeleteEntry(ctx context.Context, input *EntryIDInput) (*struct{}, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	if err := sess.DeleteEntry(ctx, input.ID); err != nil {
		return nil, err
	}
	s.publish(events.NewEntryDeletedEvent(sess.UserID(), input.ID))
	return nil, nil
}

// CatalogEntriesInput names a catalog value whose entries are deleted.
type CatalogEntriesInput struct {
	Kind string `path:"kind" enum:"dialect,category" doc:"Catalog kind"`
	Name string `query:"name" required:"true" minLength:"1" doc:"Dialect or category name"`
}

// CountOutput wraps an affected row count for Huma.
type CountOutput struct {
	Body dto.CountResponse
}

func (s *Server) handleDeleteEntriesByCatalog(ctx context.Context, input *CatalogEntriesInput) (*CountOutput, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	n, err := sess.DeleteEntriesByCatalog(ctx, domain.CatalogKind(input.Kind), input.Name)
	if err != nil {
		return nil, err
	}
	return &CountOutput{Body: dto.CountResponse{Count: n}}, nil
}

func (s *Server) publish(e events.Event) {
	if s.broker != nil {
		s.broker.Publish(e)
	}
}
