package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/handler"
	"github.com/noah-isme/crewhub-api/internal/service"
)

type stubActivityService struct {
	lastRequest dto.ActivityListRequest
}

func (s *stubActivityService) Record(context.Context, service.ActivityEntry) (dto.ActivityResponse, error) {
	return dto.ActivityResponse{}, nil
}

func (s *stubActivityService) List(_ context.Context, _ service.Actor, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	s.lastRequest = req
	return dto.ActivityListResponse{
		Items:      []dto.ActivityResponse{{ID: 1, ActorID: 9, Action: "message.deleted", EntityType: "direct_message"}},
		Pagination: dto.PaginationMeta{Page: 1, PageSize: 20, TotalItems: 1, TotalPages: 1},
	}, nil
}

func TestActivityHandlerListsWithPaginationMeta(t *testing.T) {
	svc := &stubActivityService{}
	app := newAuthedApp("/api/v1/admin/activity", 9, "admin", func(r fiber.Router) {
		handler.NewActivityHandler(svc, testLogger()).Register(r)
	})

	resp := doJSON(t, app, http.MethodGet, "/api/v1/admin/activity?page=2&page_size=5&actor_id=9&action=message.deleted", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	var items []dto.ActivityResponse
	decodeData(t, env, &items)
	require.Len(t, items, 1)
	var meta dto.PaginationMeta
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	require.Equal(t, int64(1), meta.TotalItems)

	require.Equal(t, dto.ActivityListRequest{Page: 2, PageSize: 5, ActorID: 9, Action: "message.deleted"}, svc.lastRequest)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/admin/activity?actor_id=-1", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
