package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/arabicbase/arabicbase/internal/api/dto"
	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/events"
	"github.com/arabicbase/arabicbase/internal/logger"
)

func (s *Server) registerVoteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listVotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/votes",
		Summary:     "List votes",
		Description: "Returns every vote the caller holds, keyed by entry ID",
		Tags:        []string{"Votes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListVotes)

	huma.Register(s.api, huma.Operation{
		OperationID:   "setVote",
		Method:        http.MethodPut,
		Path:          "/api/v1/votes/{entryId}",
		Summary:       "Set vote",
		Description:   "Sets the caller's vote on an entry, replacing any previous vote",
		Tags:          []string{"Votes"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleSetVote)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeVote",
		Method:        http.MethodDelete,
		Path:          "/api/v1/votes/{entryId}",
		Summary:       "Remove vote",
		Description:   "Removes the caller's vote on an entry. Missing votes succeed.",
		Tags:          []string{"Votes"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemoveVote)
}

// VotesOutput wraps the caller's votes for Huma.
type VotesOutput struct {
	Body map[string]domain.VoteType
}

func (s *Server) handleListVotes(ctx context.Context, _ *struct{}) (*VotesOutput, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	votes, err := sess.GetUserVotes(ctx)
	if err != nil {
		return nil, err
	}
	return &VotesOutput{Body: votes}, nil
}

// SetVoteInput wraps the set vote request for Huma.
type SetVoteInput struct {
	EntryID string `path:"entryId" doc:"Entry ID"`
	Body    dto.VoteRequest
}

func (s *Server) handleSetVote(ctx context.Context, input *SetVoteInput) (*struct{}, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	t := domain.VoteType(input.Body.Type)
	if err := sess.VoteEntry(ctx, input.EntryID, t); err != nil {
		return nil, err
	}
	s.publishVote(ctx, sess.UserID(), input.EntryID, t)
	return nil, nil
}

// RemoveVoteInput identifies the vote to remove.
type RemoveVoteInput struct {
	EntryID string `path:"entryId" doc:"Entry ID"`
}

func (s *Server) handleRemoveVote(ctx context.Context, input *RemoveVoteInput) (*struct{}, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	if err := sess.RemoveVote(ctx, input.EntryID); err != nil {
		return nil, err
	}
	s.publishVote(ctx, sess.UserID(), input.EntryID, domain.VoteNone)
	return nil, nil
}

// publishVote announces the recounted totals of an entry.
func (s *Server) publishVote(ctx context.Context, userID, entryID string, v domain.VoteType) {
	if s.broker == nil {
		return
	}
	e, err := s.db.GetEntry(ctx, entryID)
	if err != nil {
		s.logger.Debug("vote event skipped", logger.Err(err))
		return
	}
	s.publish(events.NewVoteEvent(userID, e, v))
}
