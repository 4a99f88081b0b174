package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

func TestCanEditOrDeleteWindowBoundary(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, CanEditOrDelete(created, created))
	require.True(t, CanEditOrDelete(created, created.Add(14*time.Minute+59*time.Second)))
	require.False(t, CanEditOrDelete(created, created.Add(15*time.Minute)))
	require.False(t, CanEditOrDelete(created, created.Add(15*time.Minute+time.Second)))
}

func TestAuthorizeEditDistinguishesOwnershipFromWindow(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	owner := Actor{ID: 1, Role: models.RoleStaff}
	other := Actor{ID: 2, Role: models.RoleAdmin}

	require.NoError(t, authorizeEdit(1, created, owner, created.Add(time.Minute)))

	late := authorizeEdit(1, created, owner, created.Add(16*time.Minute))
	require.True(t, errors.Is(late, apperror.ErrWindowExpired))
	require.False(t, errors.Is(late, apperror.ErrForbidden))

	notOwner := authorizeEdit(1, created, other, created.Add(time.Minute))
	require.True(t, errors.Is(notOwner, apperror.ErrForbidden), "administrators cannot edit other people's messages")
	require.False(t, errors.Is(notOwner, apperror.ErrWindowExpired))
}

func TestAuthorizeDelete(t *testing.T) {
	cases := []struct {
		name     string
		actor    Actor
		override bool
		wantErr  error
	}{
		{name: "sender", actor: Actor{ID: 1, Role: models.RoleVolunteer}},
		{name: "administrator", actor: Actor{ID: 9, Role: models.RoleAdmin}, override: true},
		{name: "facility admin is not a moderator", actor: Actor{ID: 9, Role: models.RoleFacilityAdmin}, wantErr: apperror.ErrForbidden},
		{name: "stranger", actor: Actor{ID: 3, Role: models.RoleStaff}, wantErr: apperror.ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			override, err := authorizeDelete(1, tc.actor)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.override, override)
		})
	}
}
