package storage_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"
	"zawaj/backend/internal/storage"
	"zawaj/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(sender, receiver string, expires time.Time) *models.MarriageRequest {
	key := models.PairKey(sender, receiver, true)
	return &models.MarriageRequest{
		SenderID:      sender,
		ReceiverID:    receiver,
		Message:       "assalamu alaikum",
		Contact:       models.ContactInfo{Phone: "+966500000000"},
		ExpiresAt:     expires,
		ActivePairKey: &key,
	}
}

func TestCreateUser_DuplicateEmailIsConflict(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)

	u := &models.User{Email: "Sara@Example.com", PasswordHash: "x", FullName: "Sara", Gender: models.GenderFemale}
	require.NoError(t, store.CreateUser(ctx, u))
	assert.Equal(t, "sara@example.com", u.Email)

	dup := &models.User{Email: "sara@example.com", PasswordHash: "x", FullName: "Other", Gender: models.GenderFemale}
	err := store.CreateUser(ctx, dup)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))

	got, err := store.GetUserByEmail(ctx, " SARA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestGetUser_NotFound(t *testing.T) {
	store := testutil.NewStorage(t)
	_, err := store.GetUser(context.Background(), "missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCreateRequest_ActivePairKeyIsUnique(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)
	a := testutil.CreateUser(t, store, "a", models.GenderMale)
	b := testutil.CreateUser(t, store, "b", models.GenderFemale)
	expires := time.Now().Add(time.Hour)

	first := newRequest(a.ID, b.ID, expires)
	require.NoError(t, store.CreateRequest(ctx, first))

	err := store.CreateRequest(ctx, newRequest(b.ID, a.ID, expires))
	assert.True(t, apperr.HasCode(err, apperr.CodeDuplicateRequest))

	// Once terminal, the pair is free again.
	ok, err := store.UpdateRequestIfStatus(ctx, first.ID, models.RequestPending, map[string]any{
		"status": models.RequestRejected,
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.NoError(t, store.CreateRequest(ctx, newRequest(a.ID, b.ID, expires)))
}

func TestUpdateRequestIfStatus_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)
	a := testutil.CreateUser(t, store, "a", models.GenderMale)
	b := testutil.CreateUser(t, store, "b", models.GenderFemale)

	req := newRequest(a.ID, b.ID, time.Now().Add(time.Hour))
	require.NoError(t, store.CreateRequest(ctx, req))

	ok, err := store.UpdateRequestIfStatus(ctx, req.ID, models.RequestPending, map[string]any{"status": models.RequestAccepted})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.UpdateRequestIfStatus(ctx, req.ID, models.RequestPending, map[string]any{"status": models.RequestRejected})
	require.NoError(t, err)
	assert.False(t, ok, "second transition must lose")

	got, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestAccepted, got.Status)
	assert.NotNil(t, got.ActivePairKey, "accepted requests keep the pair")
	require.NotNil(t, got.Sender)
	assert.Equal(t, "a", got.Sender.FullName)
}

func TestExpireIfPending_OnlyPastDeadline(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)
	a := testutil.CreateUser(t, store, "a", models.GenderMale)
	b := testutil.CreateUser(t, store, "b", models.GenderFemale)
	c := testutil.CreateUser(t, store, "c", models.GenderFemale)
	now := time.Now().UTC()

	stale := newRequest(a.ID, b.ID, now.Add(-time.Minute))
	fresh := newRequest(a.ID, c.ID, now.Add(time.Hour))
	require.NoError(t, store.CreateRequest(ctx, stale))
	require.NoError(t, store.CreateRequest(ctx, fresh))

	due, err := store.ListExpiredPending(ctx, now, nil, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, stale.ID, due[0].ID)

	due, err = store.ListExpiredPending(ctx, now, []string{stale.ID}, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	ok, err := store.ExpireIfPending(ctx, fresh.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.ExpireIfPending(ctx, stale.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetRequest(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestExpired, got.Status)
	assert.Nil(t, got.ActivePairKey)
}

func TestCountRequestsByStatus(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)
	a := testutil.CreateUser(t, store, "a", models.GenderMale)
	b := testutil.CreateUser(t, store, "b", models.GenderFemale)
	c := testutil.CreateUser(t, store, "c", models.GenderFemale)

	require.NoError(t, store.CreateRequest(ctx, newRequest(a.ID, b.ID, time.Now().Add(time.Hour))))
	r := newRequest(a.ID, c.ID, time.Now().Add(time.Hour))
	require.NoError(t, store.CreateRequest(ctx, r))
	_, err := store.UpdateRequestIfStatus(ctx, r.ID, models.RequestPending, map[string]any{"status": models.RequestCancelled})
	require.NoError(t, err)

	sent, err := store.CountRequestsByStatus(ctx, a.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sent[models.RequestPending])
	assert.Equal(t, int64(1), sent[models.RequestCancelled])
	assert.Equal(t, int64(0), sent[models.RequestExpired])

	received, err := store.CountRequestsByStatus(ctx, b.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), received[models.RequestPending])
}

func TestListPendingReview_DropsDeletedParticipants(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)
	a := testutil.CreateUser(t, store, "a", models.GenderMale)
	b := testutil.CreateUser(t, store, "b", models.GenderFemale)
	c := testutil.CreateUser(t, store, "c", models.GenderFemale)

	require.NoError(t, store.CreateRequest(ctx, newRequest(a.ID, b.ID, time.Now().Add(time.Hour))))
	require.NoError(t, store.CreateRequest(ctx, newRequest(a.ID, c.ID, time.Now().Add(time.Hour))))
	require.NoError(t, store.DeleteUser(ctx, c.ID))

	items, total, err := store.ListPendingReview(ctx, storage.ModerationFilter{}, paging.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ReceiverID)
	require.NotNil(t, items[0].Receiver)
}

func TestNotifications_ReadState(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateNotification(ctx, &models.Notification{
			RecipientID: "u1",
			Type:        models.NotificationRequestReceived,
			Title:       "t",
		}))
	}

	n, err := store.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	changed, err := store.MarkAllNotificationsRead(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)

	changed, err = store.MarkAllNotificationsRead(ctx, "u1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)

	n, err = store.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInTransaction_RollsBack(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)

	err := store.InTransaction(ctx, func(tx storage.Storage) error {
		require.NoError(t, tx.CreateAuditEntry(ctx, &models.AuditEntry{
			ActorID: "admin", ActorRole: models.RoleAdmin, Action: "warn_user",
			ResourceType: "users", ResourceID: "u1",
		}))
		return apperr.InvalidState("boom")
	})
	require.Error(t, err)

	_, total, err := store.ListAuditEntries(ctx, paging.New(1, 10))
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestBookmarks(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)
	a := testutil.CreateUser(t, store, "a", models.GenderMale)
	b := testutil.CreateUser(t, store, "b", models.GenderFemale)

	require.NoError(t, store.AddBookmark(ctx, &models.Bookmark{UserID: a.ID, BookmarkedUserID: b.ID}))
	err := store.AddBookmark(ctx, &models.Bookmark{UserID: a.ID, BookmarkedUserID: b.ID})
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))

	list, total, err := store.ListBookmarks(ctx, a.ID, paging.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.NotNil(t, list[0].BookmarkedUser)

	require.NoError(t, store.RemoveBookmark(ctx, a.ID, b.ID))
	assert.True(t, apperr.IsKind(store.RemoveBookmark(ctx, a.ID, b.ID), apperr.KindNotFound))
}

func TestIsUserSuspended_FallsBackToDatabase(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)
	u := testutil.CreateUser(t, store, "a", models.GenderMale)

	suspended, err := store.IsUserSuspended(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, suspended)

	require.NoError(t, store.UpdateUserFields(ctx, u.ID, map[string]any{"status": models.AccountSuspended}))
	suspended, err = store.IsUserSuspended(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, suspended)

	assert.ErrorIs(t, store.PublishEvent(ctx, models.RealtimeEvent{UserID: u.ID}), storage.ErrNoBroker)
}

func TestLookupsWithoutMatchDoNotLog(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)
	a := testutil.CreateUser(t, store, "a", models.GenderMale)
	b := testutil.CreateUser(t, store, "b", models.GenderFemale)

	var buf bytes.Buffer
	prev := logger.Log
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.Log = prev })

	req, err := store.FindActiveRequest(ctx, a.ID, b.ID, true)
	require.NoError(t, err)
	assert.Nil(t, req)

	_, err = store.GetUser(ctx, "missing")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	assert.Empty(t, buf.String())

	require.NoError(t, store.CreateRequest(ctx, newRequest(a.ID, b.ID, time.Now().Add(time.Hour))))
	req, err = store.FindActiveRequest(ctx, b.ID, a.ID, true)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, a.ID, req.SenderID)
}

func TestGetUserForUpdate_InsideTransaction(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)
	u := testutil.CreateUser(t, store, "a", models.GenderMale)

	err := store.InTransaction(ctx, func(tx storage.Storage) error {
		locked, err := tx.GetUserForUpdate(ctx, u.ID)
		if err != nil {
			return err
		}
		return tx.UpdateUserFields(ctx, locked.ID, map[string]any{"warning_count": locked.WarningCount + 1})
	})
	require.NoError(t, err)

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.WarningCount)

	_, err = store.GetUserForUpdate(ctx, "missing")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestUpdateMeetingIf_Guards(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStorage(t)
	a := testutil.CreateUser(t, store, "a", models.GenderMale)
	b := testutil.CreateUser(t, store, "b", models.GenderFemale)
	now := time.Now().UTC().Truncate(time.Second)

	req := newRequest(a.ID, b.ID, now.Add(time.Hour))
	require.NoError(t, store.CreateRequest(ctx, req))

	propose := func(by string, at time.Time) map[string]any {
		return map[string]any{
			"meeting_status":      models.MeetingProposed,
			"meeting_type":        models.MeetingVideo,
			"meeting_proposed_by": by,
			"meeting_proposed_at": at,
		}
	}
	notConfirmed := storage.MeetingGuard{NotStatus: models.MeetingConfirmed}

	ok, err := store.UpdateMeetingIf(ctx, req.ID, notConfirmed, propose(a.ID, now.Add(24*time.Hour)))
	require.NoError(t, err)
	assert.False(t, ok, "pending requests have no meeting")

	ok, err = store.UpdateRequestIfStatus(ctx, req.ID, models.RequestPending, map[string]any{"status": models.RequestAccepted})
	require.NoError(t, err)
	require.True(t, ok)

	first := now.Add(24 * time.Hour)
	ok, err = store.UpdateMeetingIf(ctx, req.ID, notConfirmed, propose(a.ID, first))
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	confirm := storage.MeetingGuard{
		Status:     models.MeetingProposed,
		ProposedBy: loaded.Meeting.ProposedBy,
		ProposedAt: loaded.Meeting.ProposedAt,
	}
	stale := confirm
	stale.ProposedBy = b.ID
	ok, err = store.UpdateMeetingIf(ctx, req.ID, stale, map[string]any{"meeting_status": models.MeetingConfirmed})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.UpdateMeetingIf(ctx, req.ID, confirm, map[string]any{"meeting_status": models.MeetingConfirmed})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.UpdateMeetingIf(ctx, req.ID, notConfirmed, propose(b.ID, now.Add(48*time.Hour)))
	require.NoError(t, err)
	assert.False(t, ok, "a confirmed meeting is not replaced")
}
