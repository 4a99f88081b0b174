package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/crewhub-api/internal/config"
	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/handler"
	"github.com/noah-isme/crewhub-api/internal/middleware"
	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/internal/repository"
	"github.com/noah-isme/crewhub-api/internal/router"
	"github.com/noah-isme/crewhub-api/internal/service"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

// setupServer wires the full stack. The JWT stage is replaced by headers naming the caller.
func setupServer(t *testing.T) *testServer {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	require.NoError(t, db.Exec("CREATE TABLE comments (id INTEGER PRIMARY KEY, author_id INTEGER NOT NULL)").Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	userRepo := repository.NewUserRepository(db)
	directRepo := repository.NewDirectMessageRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	groupMessageRepo := repository.NewGroupMessageRepository(db)

	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), redisClient, "test", nil, validate, logger)
	dispatcher := service.NewDispatcher(notifications, logger)
	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	delivery := service.NewDeliveryService(notifications, service.DeliveryConfig{Heartbeat: time.Second, PollInterval: 2 * time.Second, SnapshotLimit: 50}, logger)
	messages := service.NewMessageService(directRepo, userRepo, dispatcher, activity, validate, logger)
	groupMessages := service.NewGroupMessageService(groupRepo, groupMessageRepo, dispatcher, activity, validate, logger)
	access := service.NewGroupAccessService(groupRepo, userRepo, dispatcher, activity, logger)
	conversations := service.NewConversationService(directRepo, groupMessageRepo, groupRepo, userRepo, logger)
	reactions := service.NewReactionService(repository.NewReactionRepository(db), repository.NewCommentDirectory(db), redisClient, "test", time.Hour, dispatcher, validate, logger)
	requests := service.NewConversationRequestService(repository.NewConversationRequestRepository(db), userRepo, dispatcher, validate, logger)
	users := service.NewUserService(userRepo, validate, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "CrewHub Test"}, router.Dependencies{
		ConversationHandler:        handler.NewConversationHandler(conversations, messages, logger),
		MessageHandler:             handler.NewMessageHandler(messages, logger),
		GroupHandler:               handler.NewGroupHandler(access, groupMessages, logger),
		ReactionHandler:            handler.NewReactionHandler(reactions, logger),
		NotificationHandler:        handler.NewNotificationHandler(notifications, delivery, logger),
		UserHandler:                handler.NewUserHandler(users, logger),
		ConversationRequestHandler: handler.NewConversationRequestHandler(requests, logger),
		ActivityHandler:            handler.NewActivityHandler(activity, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if raw := c.Get("X-Test-User"); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 64)
				if err != nil {
					return fiber.ErrUnauthorized
				}
				c.Locals("user_id", uint(id))
				c.Locals("user_role", c.Get("X-Test-Role"))
				return c.Next()
			}
			return fiber.ErrUnauthorized
		},
		MessageLimiter: middleware.RateLimit("messages", 100, time.Second),
	})

	return &testServer{app: app, db: db}
}

func (s *testServer) createUser(t *testing.T, name string, role models.Role) models.User {
	t.Helper()
	user := models.User{Name: name, Email: name + "@crew.test", Role: role, IsActive: true}
	require.NoError(t, s.db.Create(&user).Error)
	return user
}

func (s *testServer) call(t *testing.T, as models.User, method, path string, body interface{}) (int, apiEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as.ID != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(as.ID), 10))
		req.Header.Set("X-Test-Role", string(as.Role))
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env apiEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decodeInto[T any](t *testing.T, env apiEnvelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	server := setupServer(t)

	resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = server.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = server.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestDirectMessageFlow(t *testing.T) {
	server := setupServer(t)
	alice := server.createUser(t, "alice", models.RoleStaff)
	bob := server.createUser(t, "bob", models.RoleVolunteer)

	status, env := server.call(t, alice, http.MethodPost, "/api/v1/messages", dto.DirectMessageSendRequest{RecipientID: bob.ID, Content: "<b>Shift</b> starts at 9<script>x()</script>"})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	sent := decodeInto[dto.DirectMessageResponse](t, env)
	require.Equal(t, "<b>Shift</b> starts at 9", sent.Content)
	require.True(t, sent.CanEdit)

	status, env = server.call(t, bob, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, fiber.StatusOK, status)
	snapshot := decodeInto[dto.NotificationSnapshot](t, env)
	require.Equal(t, int64(1), snapshot.UnreadCount)
	require.Len(t, snapshot.Notifications, 1)
	require.Equal(t, string(models.NotificationDirectMessage), snapshot.Notifications[0].Type)

	status, env = server.call(t, bob, http.MethodGet, "/api/v1/conversations", nil)
	require.Equal(t, fiber.StatusOK, status)
	inbox := decodeInto[[]dto.ConversationSummary](t, env)
	require.Len(t, inbox, 1)
	require.Equal(t, alice.ID, inbox[0].Partner.ID)
	require.Equal(t, int64(1), inbox[0].UnreadCount)

	status, env = server.call(t, bob, http.MethodPost, "/api/v1/conversations/"+strconv.Itoa(int(alice.ID))+"/messages", dto.ConversationReplyRequest{Content: "see you there"})
	require.Equal(t, fiber.StatusCreated, status, env.Message)

	status, env = server.call(t, bob, http.MethodPatch, "/api/v1/messages/"+strconv.Itoa(int(sent.ID)), dto.MessageEditRequest{Content: "hijack"})
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, "forbidden", env.Code)

	status, _ = server.call(t, alice, http.MethodPatch, "/api/v1/messages/"+strconv.Itoa(int(sent.ID)), dto.MessageEditRequest{Content: "Shift starts at 10"})
	require.Equal(t, fiber.StatusOK, status)

	notificationID := snapshot.Notifications[0].ID
	status, _ = server.call(t, bob, http.MethodPatch, "/api/v1/notifications/"+strconv.Itoa(int(notificationID))+"/read", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env = server.call(t, alice, http.MethodPatch, "/api/v1/notifications/"+strconv.Itoa(int(notificationID))+"/read", nil)
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "not_found", env.Code)
}

func TestGroupAccessFlow(t *testing.T) {
	server := setupServer(t)
	lead := server.createUser(t, "lead", models.RoleStaffLead)
	volunteer := server.createUser(t, "volunteer", models.RoleVolunteer)

	group := models.MessageGroup{Name: "Gate crew", IsActive: true, JoinPolicy: models.JoinPolicyDiscoverable}
	require.NoError(t, server.db.Create(&group).Error)
	now := time.Now().UTC()
	require.NoError(t, server.db.Create(&models.GroupMembership{
		GroupID: group.ID, UserID: lead.ID, Role: models.MembershipRoleAdmin, Status: models.MembershipActive, JoinedAt: now,
	}).Error)
	groupPath := "/api/v1/groups/" + strconv.Itoa(int(group.ID))

	status, env := server.call(t, volunteer, http.MethodPost, groupPath+"/messages", dto.GroupMessageSendRequest{Content: "hello"})
	require.Equal(t, fiber.StatusForbidden, status, env.Message)

	status, env = server.call(t, volunteer, http.MethodPost, groupPath+"/access-requests", nil)
	require.Equal(t, fiber.StatusOK, status, env.Message)
	requested := decodeInto[dto.GroupAccessResponse](t, env)
	require.False(t, requested.AutoApproved)
	require.Equal(t, string(models.MembershipPending), requested.Membership.Status)

	status, env = server.call(t, lead, http.MethodGet, groupPath+"/access-requests", nil)
	require.Equal(t, fiber.StatusOK, status)
	pending := decodeInto[[]dto.PendingAccessRequest](t, env)
	require.Len(t, pending, 1)
	require.Equal(t, volunteer.ID, pending[0].User.ID)

	decisionPath := groupPath + "/access-requests/" + strconv.Itoa(int(volunteer.ID)) + "/decision"
	status, env = server.call(t, volunteer, http.MethodPost, decisionPath, map[string]bool{"approve": true})
	require.Equal(t, fiber.StatusForbidden, status, env.Message)

	status, env = server.call(t, lead, http.MethodPost, decisionPath, map[string]bool{"approve": true})
	require.Equal(t, fiber.StatusOK, status, env.Message)

	status, env = server.call(t, lead, http.MethodPost, decisionPath, map[string]bool{"approve": false})
	require.Equal(t, fiber.StatusConflict, status, env.Message)

	status, env = server.call(t, volunteer, http.MethodPost, groupPath+"/messages", dto.GroupMessageSendRequest{Content: "hello crew"})
	require.Equal(t, fiber.StatusCreated, status, env.Message)

	status, env = server.call(t, lead, http.MethodGet, "/api/v1/conversations/groups", nil)
	require.Equal(t, fiber.StatusOK, status)
	groups := decodeInto[[]dto.GroupConversationSummary](t, env)
	require.Len(t, groups, 1)
	require.NotNil(t, groups[0].LastMessage)
	require.Equal(t, "hello crew", groups[0].LastMessage.Content)
}

func TestReactionToggleOverHTTP(t *testing.T) {
	server := setupServer(t)
	author := server.createUser(t, "author", models.RoleStaff)
	fan := server.createUser(t, "fan", models.RoleVolunteer)
	require.NoError(t, server.db.Exec("INSERT INTO comments (id, author_id) VALUES (?, ?)", 77, author.ID).Error)

	toggle := dto.ReactionToggleRequest{Type: "HEART", TargetID: 77, TargetKind: "COMMENT"}
	status, env := server.call(t, fan, http.MethodPost, "/api/v1/reactions/toggle", toggle)
	require.Equal(t, fiber.StatusOK, status, env.Message)
	summary := decodeInto[dto.ReactionSummary](t, env)
	require.Equal(t, int64(1), summary.Counts["HEART"])
	require.NotNil(t, summary.UserReaction)

	status, env = server.call(t, fan, http.MethodPost, "/api/v1/reactions/toggle", toggle)
	require.Equal(t, fiber.StatusOK, status)
	summary = decodeInto[dto.ReactionSummary](t, env)
	require.Zero(t, summary.Counts["HEART"])
	require.Nil(t, summary.UserReaction)

	status, env = server.call(t, author, http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, fiber.StatusOK, status)
	snapshot := decodeInto[dto.NotificationSnapshot](t, env)
	require.Len(t, snapshot.Notifications, 1)
	require.Equal(t, string(models.NotificationCommentReaction), snapshot.Notifications[0].Type)
}

func TestAdminActivityRequiresModeratorRole(t *testing.T) {
	server := setupServer(t)
	admin := server.createUser(t, "admin", models.RoleAdmin)
	staff := server.createUser(t, "staff", models.RoleStaff)
	other := server.createUser(t, "other", models.RoleStaff)

	status, env := server.call(t, staff, http.MethodPost, "/api/v1/messages", dto.DirectMessageSendRequest{RecipientID: other.ID, Content: "rude"})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	sent := decodeInto[dto.DirectMessageResponse](t, env)

	status, _ = server.call(t, admin, http.MethodDelete, "/api/v1/messages/"+strconv.Itoa(int(sent.ID)), nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = server.call(t, staff, http.MethodGet, "/api/v1/admin/activity", nil)
	require.Equal(t, fiber.StatusForbidden, status)

	status, env = server.call(t, admin, http.MethodGet, "/api/v1/admin/activity", nil)
	require.Equal(t, fiber.StatusOK, status)
	entries := decodeInto[[]dto.ActivityResponse](t, env)
	require.Len(t, entries, 1)
	require.Equal(t, service.ActionMessageDeleted, entries[0].Action)
}

func TestConversationRequestAndSearch(t *testing.T) {
	server := setupServer(t)
	alice := server.createUser(t, "alice", models.RoleStaff)
	bob := server.createUser(t, "bobby", models.RoleStaff)

	status, env := server.call(t, alice, http.MethodGet, "/api/v1/users/search?q=bob", nil)
	require.Equal(t, fiber.StatusOK, status, env.Message)
	found := decodeInto[[]dto.UserSummary](t, env)
	require.Len(t, found, 1)
	require.Equal(t, bob.ID, found[0].ID)

	status, env = server.call(t, alice, http.MethodPost, "/api/v1/conversation-requests", dto.ConversationRequestCreateRequest{ToUserID: bob.ID, Message: "can we talk about the rota?"})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	created := decodeInto[dto.ConversationRequestResponse](t, env)

	status, env = server.call(t, bob, http.MethodGet, "/api/v1/conversation-requests", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, decodeInto[[]dto.ConversationRequestResponse](t, env), 1)

	status, env = server.call(t, bob, http.MethodPost, "/api/v1/conversation-requests/"+strconv.Itoa(int(created.ID))+"/decision", map[string]bool{"approve": true})
	require.Equal(t, fiber.StatusOK, status, env.Message)

	status, env = server.call(t, bob, http.MethodGet, "/api/v1/conversations/"+strconv.Itoa(int(alice.ID)), nil)
	require.Equal(t, fiber.StatusOK, status)
	detail := decodeInto[dto.ConversationDetail](t, env)
	require.Len(t, detail.Messages, 1)
}
