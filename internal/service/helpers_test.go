package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// testEnv wires the real repositories and notification pipeline over an in-memory store.
type testEnv struct {
	db            *gorm.DB
	users         repository.UserRepository
	directs       repository.DirectMessageRepository
	groupMessages repository.GroupMessageRepository
	groups        repository.GroupRepository
	notifications NotificationService
	dispatcher    Dispatcher
	audit         ActivityService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupServiceDB(t)
	notifications := NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, testValidator(), testLogger())
	return &testEnv{
		db:            db,
		users:         repository.NewUserRepository(db),
		directs:       repository.NewDirectMessageRepository(db),
		groupMessages: repository.NewGroupMessageRepository(db),
		groups:        repository.NewGroupRepository(db),
		notifications: notifications,
		dispatcher:    NewDispatcher(notifications, testLogger()),
		audit:         NewActivityService(repository.NewActivityLogRepository(db), testLogger()),
	}
}

func (e *testEnv) createUser(t *testing.T, name string, role models.Role) models.User {
	t.Helper()
	user := models.User{
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@crew.test",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) createGroup(t *testing.T, name string, policy models.JoinPolicy) models.MessageGroup {
	t.Helper()
	group := models.MessageGroup{Name: name, IsActive: true, JoinPolicy: policy}
	require.NoError(t, e.db.Create(&group).Error)
	return group
}

func (e *testEnv) addMembership(t *testing.T, groupID, userID uint, role models.MembershipRole, status models.MembershipStatus) models.GroupMembership {
	t.Helper()
	now := time.Now().UTC()
	membership := models.GroupMembership{
		GroupID:   groupID,
		UserID:    userID,
		Role:      role,
		Status:    status,
		JoinedAt:  now.Add(-time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, e.db.Create(&membership).Error)
	return membership
}

func (e *testEnv) notificationsFor(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	var items []models.Notification
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error)
	return items
}

func actorOf(user models.User) Actor {
	return Actor{ID: user.ID, Role: user.Role}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// recordingPublisher captures publishes and optionally fails for chosen recipients.
type recordingPublisher struct {
	mu      sync.Mutex
	calls   []dto.NotificationCreateRequest
	failFor map[uint]bool
}

func (p *recordingPublisher) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, payload)
	if p.failFor[payload.UserID] {
		return dto.NotificationResponse{}, errors.New("store unavailable")
	}
	return dto.NotificationResponse{ID: uint(len(p.calls)), UserID: payload.UserID, Type: payload.Type}, nil
}

func (p *recordingPublisher) recipients() []uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]uint, 0, len(p.calls))
	for _, call := range p.calls {
		out = append(out, call.UserID)
	}
	return out
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	return dto.NotificationResponse{}, fmt.Errorf("publish to %d: connection refused", payload.UserID)
}
