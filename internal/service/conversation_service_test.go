package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

func TestConversationServiceListOnePerPartnerNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	me := env.createUser(t, "Morgan Me", models.RoleStaff)
	ana := env.createUser(t, "Ana", models.RoleStaff)
	ben := env.createUser(t, "Ben", models.RoleStaff)
	cy := env.createUser(t, "Cy", models.RoleStaff)
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	seed := []models.DirectMessage{
		{SenderID: ana.ID, RecipientID: me.ID, Content: "a1", CreatedAt: base},
		{SenderID: me.ID, RecipientID: ben.ID, Content: "b1", CreatedAt: base.Add(time.Minute)},
		{SenderID: ana.ID, RecipientID: me.ID, Content: "a2", CreatedAt: base.Add(2 * time.Minute)},
		{SenderID: cy.ID, RecipientID: me.ID, Content: "c1", CreatedAt: base.Add(3 * time.Minute)},
		// Same instant as c1: the higher id wins the tie.
		{SenderID: ben.ID, RecipientID: me.ID, Content: "b2", CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range seed {
		require.NoError(t, env.directs.Create(ctx, &seed[i]))
	}

	svc := NewConversationService(env.directs, env.groupMessages, env.groups, env.users, testLogger())
	summaries, err := svc.List(ctx, actorOf(me))
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	require.Equal(t, ben.ID, summaries[0].Partner.ID)
	require.Equal(t, "b2", summaries[0].LastMessage.Content)
	require.Equal(t, int64(1), summaries[0].UnreadCount)
	require.Equal(t, cy.ID, summaries[1].Partner.ID)
	require.Equal(t, ana.ID, summaries[2].Partner.ID)
	require.Equal(t, "a2", summaries[2].LastMessage.Content)
	require.Equal(t, int64(2), summaries[2].UnreadCount)

	detail, err := svc.Get(ctx, actorOf(me), ana.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana", detail.Partner.Name)
	require.Len(t, detail.Messages, 2)
	require.Equal(t, "a1", detail.Messages[0].Content)

	summaries, err = svc.List(ctx, actorOf(me))
	require.NoError(t, err)
	require.Zero(t, summaries[2].UnreadCount)

	_, err = svc.Get(ctx, actorOf(me), 9999)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestConversationServiceListGroupsCountsSinceLastRead(t *testing.T) {
	env := newTestEnv(t)
	me := env.createUser(t, "Morgan Me", models.RoleStaff)
	other := env.createUser(t, "Olly Other", models.RoleStaff)
	busy := env.createGroup(t, "Busy", models.JoinPolicyClosed)
	quiet := env.createGroup(t, "Quiet", models.JoinPolicyClosed)
	env.addMembership(t, busy.ID, me.ID, models.MembershipRoleMember, models.MembershipActive)
	env.addMembership(t, quiet.ID, me.ID, models.MembershipRoleMember, models.MembershipActive)
	ctx := context.Background()

	now := time.Now().UTC()
	readAt := now.Add(-10 * time.Minute)
	require.NoError(t, env.groups.TouchLastRead(ctx, busy.ID, me.ID, readAt))

	messages := []models.GroupMessage{
		{GroupID: busy.ID, SenderID: other.ID, Content: "before", CreatedAt: readAt.Add(-time.Minute)},
		{GroupID: busy.ID, SenderID: other.ID, Content: "after", CreatedAt: readAt.Add(time.Minute)},
		{GroupID: busy.ID, SenderID: me.ID, Content: "mine", CreatedAt: readAt.Add(2 * time.Minute)},
	}
	for i := range messages {
		require.NoError(t, env.groupMessages.Create(ctx, &messages[i]))
	}

	svc := NewConversationService(env.directs, env.groupMessages, env.groups, env.users, testLogger())
	summaries, err := svc.ListGroups(ctx, actorOf(me))
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, busy.ID, summaries[0].Group.ID)
	require.NotNil(t, summaries[0].LastMessage)
	require.Equal(t, "mine", summaries[0].LastMessage.Content)
	require.Equal(t, int64(1), summaries[0].UnreadCount)
	require.Equal(t, quiet.ID, summaries[1].Group.ID)
	require.Nil(t, summaries[1].LastMessage)
}
