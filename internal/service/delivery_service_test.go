package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crewhub-api/internal/dto"
)

func nextSnapshot(t *testing.T, session DeliverySession) dto.NotificationSnapshot {
	t.Helper()
	select {
	case snapshot, ok := <-session.Updates():
		require.True(t, ok, "session closed unexpectedly")
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return dto.NotificationSnapshot{}
}

func requireClosed(t *testing.T, session DeliverySession) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-session.Updates():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("session was not released")
		}
	}
}

func TestDeliveryServiceSnapshot(t *testing.T) {
	env := newTestEnv(t)
	svc := NewDeliveryService(env.notifications, DeliveryConfig{PollInterval: 2 * time.Second, SnapshotLimit: 2}, testLogger())

	for i := 0; i < 3; i++ {
		publishTestNotification(t, env.notifications, 1)
	}

	snapshot, err := svc.Snapshot(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, snapshot.Notifications, 2)
	require.Equal(t, int64(3), snapshot.UnreadCount)
	require.Equal(t, int64(2000), snapshot.PollIntervalMs)
	require.Greater(t, snapshot.Notifications[0].ID, snapshot.Notifications[1].ID)
}

func TestDeliverySessionEmitsOnOpenAndChange(t *testing.T) {
	env := newTestEnv(t)
	svc := NewDeliveryService(env.notifications, DeliveryConfig{Heartbeat: time.Hour}, testLogger())

	session := svc.Open(context.Background(), 1, "test")
	initial := nextSnapshot(t, session)
	require.Zero(t, initial.UnreadCount)

	publishTestNotification(t, env.notifications, 1)
	require.Eventually(t, func() bool {
		select {
		case snapshot := <-session.Updates():
			return snapshot.UnreadCount == 1
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	session.Close()
	session.Close()
	requireClosed(t, session)
}

func TestDeliverySessionHeartbeatAndCancellation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewDeliveryService(env.notifications, DeliveryConfig{Heartbeat: 20 * time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	session := svc.Open(ctx, 1, "test")
	nextSnapshot(t, session)
	nextSnapshot(t, session)

	cancel()
	requireClosed(t, session)
}
