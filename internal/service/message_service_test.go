package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

func newTestMessageService(env *testEnv, dispatcher Dispatcher) *messageService {
	svc := NewMessageService(env.directs, env.users, dispatcher, env.audit, testValidator(), testLogger())
	return svc.(*messageService)
}

func TestMessageServiceSendDirectNotifiesRecipient(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice Reyes", models.RoleStaff)
	bob := env.createUser(t, "Bob Ito", models.RoleVolunteer)
	svc := newTestMessageService(env, env.dispatcher)

	message, err := svc.SendDirect(context.Background(), actorOf(alice), dto.DirectMessageSendRequest{
		RecipientID: bob.ID,
		Subject:     "Load-in",
		Content:     "<script>alert(1)</script>Doors open at <b>6pm</b>",
	})
	require.NoError(t, err)
	require.Equal(t, "Doors open at <b>6pm</b>", message.Content)
	require.False(t, message.Read)
	require.True(t, message.CanEdit)

	notifications := env.notificationsFor(t, bob.ID)
	require.Len(t, notifications, 1)
	require.Equal(t, models.NotificationDirectMessage, notifications[0].Type)
	require.Contains(t, notifications[0].Title, "Alice Reyes")
	require.Empty(t, env.notificationsFor(t, alice.ID))
}

func TestMessageServiceSendDirectValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice Reyes", models.RoleStaff)
	svc := newTestMessageService(env, env.dispatcher)

	cases := []struct {
		name string
		req  dto.DirectMessageSendRequest
	}{
		{name: "self", req: dto.DirectMessageSendRequest{RecipientID: alice.ID, Content: "hi"}},
		{name: "unknown recipient", req: dto.DirectMessageSendRequest{RecipientID: 999, Content: "hi"}},
		{name: "empty after sanitising", req: dto.DirectMessageSendRequest{RecipientID: 999, Content: "<script></script>"}},
		{name: "missing content", req: dto.DirectMessageSendRequest{RecipientID: 999}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SendDirect(context.Background(), actorOf(alice), tc.req)
			require.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestMessageServiceSendSucceedsWhenDispatchFails(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice Reyes", models.RoleStaff)
	bob := env.createUser(t, "Bob Ito", models.RoleStaff)
	svc := newTestMessageService(env, NewDispatcher(failingPublisher{}, testLogger()))

	message, err := svc.Reply(context.Background(), actorOf(alice), bob.ID, dto.ConversationReplyRequest{Content: "still here"})
	require.NoError(t, err)
	require.NotZero(t, message.ID)

	stored, err := env.directs.FindByID(context.Background(), message.ID)
	require.NoError(t, err)
	require.Equal(t, "still here", stored.Content)
}

func TestMessageServiceEditWindow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice Reyes", models.RoleStaff)
	bob := env.createUser(t, "Bob Ito", models.RoleStaff)
	svc := newTestMessageService(env, env.dispatcher)

	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = fixedClock(created)
	message, err := svc.SendDirect(context.Background(), actorOf(alice), dto.DirectMessageSendRequest{RecipientID: bob.ID, Content: "first"})
	require.NoError(t, err)

	svc.now = fixedClock(created.Add(14*time.Minute + 59*time.Second))
	edited, err := svc.Edit(context.Background(), actorOf(alice), message.ID, dto.MessageEditRequest{Content: "second"})
	require.NoError(t, err)
	require.Equal(t, "second", edited.Content)
	require.NotNil(t, edited.EditedAt)

	_, err = svc.Edit(context.Background(), actorOf(bob), message.ID, dto.MessageEditRequest{Content: "hijack"})
	require.True(t, errors.Is(err, apperror.ErrForbidden))
	require.Equal(t, "forbidden", apperror.Code(err))

	svc.now = fixedClock(created.Add(15*time.Minute + time.Second))
	_, err = svc.Edit(context.Background(), actorOf(alice), message.ID, dto.MessageEditRequest{Content: "third"})
	require.True(t, errors.Is(err, apperror.ErrWindowExpired))
	require.Equal(t, "window_expired", apperror.Code(err))

	stored, err := env.directs.FindByID(context.Background(), message.ID)
	require.NoError(t, err)
	require.Equal(t, "second", stored.Content)

	_, err = svc.Edit(context.Background(), actorOf(alice), 4242, dto.MessageEditRequest{Content: "ghost"})
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestMessageServiceDeletePermissions(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "Alice Reyes", models.RoleStaff)
	bob := env.createUser(t, "Bob Ito", models.RoleStaff)
	admin := env.createUser(t, "Ada Admin", models.RoleAdmin)
	svc := newTestMessageService(env, env.dispatcher)
	ctx := context.Background()

	first, err := svc.SendDirect(ctx, actorOf(alice), dto.DirectMessageSendRequest{RecipientID: bob.ID, Content: "one"})
	require.NoError(t, err)
	second, err := svc.SendDirect(ctx, actorOf(alice), dto.DirectMessageSendRequest{RecipientID: bob.ID, Content: "two"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, actorOf(bob), first.ID), apperror.ErrForbidden)

	// Deleting has no time limit for the sender.
	svc.now = fixedClock(time.Now().UTC().Add(24 * time.Hour))
	require.NoError(t, svc.Delete(ctx, actorOf(alice), first.ID))
	require.NoError(t, svc.Delete(ctx, actorOf(admin), second.ID))
	require.ErrorIs(t, svc.Delete(ctx, actorOf(admin), second.ID), apperror.ErrNotFound)

	var entries []models.ActivityLog
	require.NoError(t, env.db.Find(&entries).Error)
	require.Len(t, entries, 1, "only the administrator override is audited")
	require.Equal(t, ActionMessageDeleted, entries[0].Action)
	require.Equal(t, admin.ID, entries[0].ActorID)
}
