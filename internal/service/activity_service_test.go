package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/internal/repository"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
	filter  repository.ActivityLogFilter
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	m.filter = filter
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksSensitiveMetadata(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		Actor:      Actor{ID: 1, Role: "Admin"},
		Action:     "Group_Member.Added",
		EntityType: "group_membership",
		EntityID:   uintPtr(5),
		Metadata: map[string]interface{}{
			"email":    "volunteer@example.com",
			"token_id": "abc",
			"group_id": 3,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["email"])
	require.Equal(t, "***", entry.Metadata["token_id"])
	require.Equal(t, 3, entry.Metadata["group_id"])
	require.Equal(t, "admin", entry.ActorRole)
	require.Equal(t, ActionMemberAdded, entry.Action)

	_, err = svc.Record(context.Background(), ActivityEntry{Actor: Actor{ID: 1}, EntityType: "x"})
	require.ErrorIs(t, err, apperror.ErrValidation)
}

func TestActivityServiceListRestrictedToAdministrators(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	_, err := svc.List(context.Background(), Actor{ID: 2, Role: models.RoleStaff}, dto.ActivityListRequest{})
	require.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.Record(context.Background(), ActivityEntry{Actor: Actor{ID: 1, Role: models.RoleAdmin}, Action: ActionMessageDeleted, EntityType: "direct_message"})
	require.NoError(t, err)

	result, err := svc.List(context.Background(), Actor{ID: 1, Role: models.RoleFacilityAdmin}, dto.ActivityListRequest{ActorID: 1, Action: " MESSAGE.DELETED "})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, 1, result.Pagination.Page)
	require.Equal(t, 20, result.Pagination.PageSize)
	require.Equal(t, 1, result.Pagination.TotalPages)
	require.NotNil(t, repo.filter.ActorID)
	require.Equal(t, ActionMessageDeleted, repo.filter.Action)
}
