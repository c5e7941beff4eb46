package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/arabicbase/arabicbase/internal/api/dto"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/profile",
		Summary:     "Get profile",
		Description: "Returns the caller's tier. Users without a stored profile are on the free tier.",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProfile)
}

// ProfileOutput wraps the profile response for Huma.
type ProfileOutput struct {
	Body dto.ProfileResponse
}

func (s *Server) handleGetProfile(ctx context.Context, _ *struct{}) (*ProfileOutput, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	p, err := sess.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: dto.ProfileResponse{
		UserID:    p.UserID,
		IsPro:     p.IsPro,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}}, nil
}
