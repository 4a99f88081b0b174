package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/handler"
	"github.com/noah-isme/crewhub-api/internal/service"
)

type stubReactionService struct {
	toggled dto.ReactionToggleRequest
	queried dto.ReactionTargetQuery
}

func (s *stubReactionService) Toggle(_ context.Context, _ service.Actor, req dto.ReactionToggleRequest) (dto.ReactionSummary, error) {
	s.toggled = req
	current := req.Type
	return dto.ReactionSummary{
		TargetID:     req.TargetID,
		TargetKind:   req.TargetKind,
		Counts:       map[string]int64{"LIKE": 1, "HEART": 0, "DOWNVOTE": 0},
		UserReaction: &current,
	}, nil
}

func (s *stubReactionService) Get(_ context.Context, _ service.Actor, query dto.ReactionTargetQuery) (dto.ReactionSummary, error) {
	s.queried = query
	return dto.ReactionSummary{TargetID: query.TargetID, TargetKind: query.TargetKind, Counts: map[string]int64{}}, nil
}

func TestReactionHandlerToggleAndRead(t *testing.T) {
	svc := &stubReactionService{}
	app := newAuthedApp("/api/v1/reactions", 3, "volunteer", func(r fiber.Router) {
		handler.NewReactionHandler(svc, testLogger()).Register(r)
	})

	resp := doJSON(t, app, http.MethodPost, "/api/v1/reactions/toggle", dto.ReactionToggleRequest{Type: "LIKE", TargetID: 8, TargetKind: "PHOTO"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var summary dto.ReactionSummary
	decodeData(t, decodeEnvelope(t, resp), &summary)
	require.Equal(t, int64(1), summary.Counts["LIKE"])
	require.Equal(t, "LIKE", *summary.UserReaction)
	require.Equal(t, "PHOTO", svc.toggled.TargetKind)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/reactions?target_id=8&target_kind=COMMENT", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(8), svc.queried.TargetID)
	require.Equal(t, "COMMENT", svc.queried.TargetKind)
}
