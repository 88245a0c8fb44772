package storage_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*storage.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return storage.NewRedisStoreFromClient(rdb), mr
}

func nextEvent(t *testing.T, sub storage.Subscription) models.ComplaintEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "events channel closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for complaints event")
		return models.ComplaintEvent{}
	}
}

func TestRedisStore_GetUserProfile(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveUser(ctx, &models.User{ID: "u1", Role: "admin", Department: "catering"}))

	fields, err := s.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "admin", fields["role"])
	assert.Equal(t, "catering", fields["department"])

	_, err = s.GetUserProfile(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestRedisStore_SaveUserWithoutFieldsStillExists(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveUser(ctx, &models.User{ID: "bare"}))

	fields, err := s.GetUserProfile(ctx, "bare")
	require.NoError(t, err)
	assert.Equal(t, "STAFF", fields["role"])
}

func TestRedisStore_SetComplaintField(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveComplaint(ctx, &models.Complaint{ID: "C1", Text: "a", Timestamp: 1, Department: models.DepartmentOther}))
	require.NoError(t, s.SaveComplaint(ctx, &models.Complaint{ID: "C2", Text: "b", Timestamp: 2, Department: models.DepartmentOther}))

	require.NoError(t, s.SetComplaintField(ctx, "C1", "feedback", "Great job"))

	assert.Equal(t, "Great job", mr.HGet("complaints:C1", "feedback"))
	assert.Equal(t, "", mr.HGet("complaints:C2", "feedback"), "other complaints are untouched")

	err := s.SetComplaintField(ctx, "nope", "feedback", "x")
	assert.ErrorIs(t, err, models.ErrComplaintNotFound)

	err = s.SetComplaintField(ctx, "C1", "role", "ADMIN")
	assert.ErrorIs(t, err, models.ErrStoreWrite)
}

func TestRedisStore_SubscribeDeliversSnapshots(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveComplaint(ctx, &models.Complaint{ID: "B", Text: "b", Timestamp: 200, Department: models.DepartmentSecurity}))
	require.NoError(t, s.SaveComplaint(ctx, &models.Complaint{ID: "A", Text: "a", Timestamp: 100, Department: models.DepartmentCatering}))
	// a dangling index entry is not a document
	mr.SAdd("complaints", "ghost")

	sub, err := s.SubscribeComplaints(ctx)
	require.NoError(t, err)
	defer sub.Close()

	first := nextEvent(t, sub)
	require.NoError(t, first.Err)
	require.Len(t, first.Snapshot, 2)
	assert.Equal(t, "A", first.Snapshot[0].ID, "snapshot is ordered by id")
	assert.Equal(t, "B", first.Snapshot[1].ID)

	require.NoError(t, s.SetComplaintField(ctx, "A", "feedback", "Thanks"))

	second := nextEvent(t, sub)
	require.NoError(t, second.Err)
	require.Len(t, second.Snapshot, 2)
	assert.Equal(t, "Thanks", second.Snapshot[0].Fields["feedback"])
}

func TestRedisStore_SubscriptionCloseIsIdempotent(t *testing.T) {
	s, _ := newTestRedisStore(t)

	sub, err := s.SubscribeComplaints(context.Background())
	require.NoError(t, err)
	_ = nextEvent(t, sub)

	require.NoError(t, sub.Close())
	assert.NotPanics(t, func() { _ = sub.Close() })

	_, ok := <-sub.Events()
	assert.False(t, ok, "events channel is closed after Close")
}

func TestRedisStore_SetComplaintFieldNeverRecreatesDeleted(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveComplaint(ctx, &models.Complaint{ID: "gone", Text: "a", Timestamp: 1}))
	mr.Del("complaints:gone")

	err := s.SetComplaintField(ctx, "gone", "feedback", "late")
	assert.ErrorIs(t, err, models.ErrComplaintNotFound)
	assert.False(t, mr.Exists("complaints:gone"))

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("R%d", i)
		key := "complaints:" + id
		require.NoError(t, s.SaveComplaint(ctx, &models.Complaint{ID: id, Text: "racing", Timestamp: 1}))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetComplaintField(ctx, id, "feedback", "late")
		}()
		go func() {
			defer wg.Done()
			mr.Del(key)
		}()
		wg.Wait()

		if mr.Exists(key) {
			assert.Equal(t, "racing", mr.HGet(key, "text"), "%s was recreated without its text", id)
		}
	}
}

func TestRedisStore_SubscriptionReportsOutageAndReloadsAfterReconnect(t *testing.T) {
	s, mr := newTestRedisStore(t)
	s.HealthCheck = 5 * time.Second
	s.RetryInterval = 50 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, s.SaveComplaint(ctx, &models.Complaint{ID: "C1", Text: "a", Timestamp: 1}))

	sub, err := s.SubscribeComplaints(ctx)
	require.NoError(t, err)
	defer sub.Close()

	first := nextEvent(t, sub)
	require.NoError(t, first.Err)
	require.Len(t, first.Snapshot, 1)

	mr.Close()

	outage := nextEvent(t, sub)
	assert.ErrorIs(t, outage.Err, models.ErrStoreRead)

	// written while the listener was disconnected, so no notification reaches it
	mr.HSet("complaints:C2", "text", "b", "timestamp", "2")
	mr.SAdd("complaints", "C2")
	require.NoError(t, mr.Restart())

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			require.True(t, ok, "events channel closed unexpectedly")
			if ev.Err == nil && len(ev.Snapshot) == 2 {
				assert.Equal(t, "C2", ev.Snapshot[1].ID)
				return
			}
		case <-deadline:
			t.Fatal("no snapshot after the store came back")
		}
	}
}
