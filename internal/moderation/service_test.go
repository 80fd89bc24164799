package moderation_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/auth"
	"zawaj/backend/internal/config"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/moderation"
	"zawaj/backend/internal/notification"
	"zawaj/backend/internal/paging"
	"zawaj/backend/internal/storage"
	"zawaj/backend/internal/testutil"
	"zawaj/backend/internal/validation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentNotification struct {
	recipient string
	typ       models.NotificationType
	payload   notification.Payload
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) NotifyAfter(ctx context.Context, recipientID string, typ models.NotificationType, p notification.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{recipient: recipientID, typ: typ, payload: p})
}

func (f *fakeNotifier) types(recipient string) []models.NotificationType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.NotificationType
	for _, n := range f.sent {
		if n.recipient == recipient {
			out = append(out, n.typ)
		}
	}
	return out
}

type fakeDeliverer struct {
	mu     sync.Mutex
	events []models.RealtimeEvent
}

func (f *fakeDeliverer) Publish(ctx context.Context, event models.RealtimeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fixture struct {
	ctx       context.Context
	store     *storage.Service
	svc       *moderation.Service
	notifier  *fakeNotifier
	deliverer *fakeDeliverer
	now       time.Time

	admin     auth.Session
	moderator auth.Session
	member    auth.Session
	alice     *models.User
	bob       *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStorage(t)
	notifier := &fakeNotifier{}
	deliverer := &fakeDeliverer{}
	svc := moderation.NewService(store, notifier, deliverer, validation.New(config.DefaultRequestPolicy()))

	admin := testutil.CreateUserWithRole(t, store, "Admin", models.GenderMale, models.RoleAdmin)
	mod := testutil.CreateUserWithRole(t, store, "Moderator", models.GenderFemale, models.RoleModerator)
	alice := testutil.CreateUser(t, store, "Aisha", models.GenderFemale)
	bob := testutil.CreateUser(t, store, "Bilal", models.GenderMale)

	f := &fixture{
		ctx:       context.Background(),
		store:     store,
		svc:       svc,
		notifier:  notifier,
		deliverer: deliverer,
		now:       time.Now().UTC().Truncate(time.Second),
		admin:     auth.Session{UserID: admin.ID, Role: models.RoleAdmin},
		moderator: auth.Session{UserID: mod.ID, Role: models.RoleModerator},
		member:    auth.Session{UserID: bob.ID, Role: models.RoleUser},
		alice:     alice,
		bob:       bob,
	}
	svc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) request(t *testing.T, sender, receiver *models.User) *models.MarriageRequest {
	t.Helper()
	key := models.PairKey(sender.ID, receiver.ID, true)
	req := &models.MarriageRequest{
		SenderID:      sender.ID,
		ReceiverID:    receiver.ID,
		Message:       "assalamu alaikum",
		Contact:       models.ContactInfo{Phone: "+966501234567"},
		ExpiresAt:     f.now.Add(14 * 24 * time.Hour),
		ActivePairKey: &key,
	}
	require.NoError(t, f.store.CreateRequest(f.ctx, req))
	return req
}

func (f *fixture) message(t *testing.T, sender, receiver *models.User) *models.Message {
	t.Helper()
	room := &models.ChatRoom{
		RoomID:    uuid.New().String(),
		RequestID: uuid.New().String(),
		User1ID:   sender.ID,
		User2ID:   receiver.ID,
		IsActive:  true,
		StartedAt: f.now,
	}
	require.NoError(t, f.store.CreateRoom(f.ctx, room))
	msg := &models.Message{RoomID: room.RoomID, SenderID: sender.ID, ReceiverID: receiver.ID, Content: "hello"}
	require.NoError(t, f.store.CreateMessage(f.ctx, msg))
	return msg
}

func (f *fixture) report(t *testing.T, reason string) *models.Report {
	t.Helper()
	r, err := f.svc.CreateReport(f.ctx, f.bob.ID, validation.ReportInput{
		ReportedUserID: f.alice.ID,
		Reason:         reason,
		Details:        "asked for money",
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) userAction(action string) moderation.ActionInput {
	return moderation.ActionInput{
		ResourceType: moderation.ResourceUsers,
		ResourceID:   f.alice.ID,
		Action:       action,
		Notes:        "rude messages",
	}
}

func TestPerformAction_RequiresStaff(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PerformAction(f.ctx, f.member, f.userAction(moderation.ActionWarnUser))
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))

	_, _, err = f.svc.ListPending(f.ctx, f.member, moderation.ResourceReports, storage.ModerationFilter{}, paging.New(1, 20))
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))

	_, _, err = f.svc.ListAudit(f.ctx, f.member, paging.New(1, 20))
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
}

func TestPerformAction_InvalidAction(t *testing.T) {
	f := newFixture(t)

	in := f.userAction(moderation.ActionApprove)
	_, err := f.svc.PerformAction(f.ctx, f.admin, in)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidAction))

	in = f.userAction("ban_forever")
	_, err = f.svc.PerformAction(f.ctx, f.admin, in)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidAction))
}

func TestPerformAction_TargetRules(t *testing.T) {
	f := newFixture(t)

	self := f.userAction(moderation.ActionWarnUser)
	self.ResourceID = f.moderator.UserID
	_, err := f.svc.PerformAction(f.ctx, f.moderator, self)
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden), "no self moderation")

	onAdmin := f.userAction(moderation.ActionSuspendUser)
	onAdmin.ResourceID = f.admin.UserID
	_, err = f.svc.PerformAction(f.ctx, f.moderator, onAdmin)
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden), "moderators cannot act on staff")

	_, err = f.svc.PerformAction(f.ctx, f.moderator, f.userAction(moderation.ActionDeleteProfile))
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden), "moderators cannot delete profiles")

	missing := f.userAction(moderation.ActionWarnUser)
	missing.ResourceID = uuid.New().String()
	_, err = f.svc.PerformAction(f.ctx, f.admin, missing)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestPerformAction_WarningsEscalateToSuspension(t *testing.T) {
	f := newFixture(t)

	for i := 1; i < config.WarningsBeforeSuspension; i++ {
		res, err := f.svc.PerformAction(f.ctx, f.moderator, f.userAction(moderation.ActionWarnUser))
		require.NoError(t, err)
		require.NotNil(t, res.WarningCount)
		assert.Equal(t, i, *res.WarningCount)
		assert.False(t, res.AutoSuspended)
	}

	res, err := f.svc.PerformAction(f.ctx, f.moderator, f.userAction(moderation.ActionWarnUser))
	require.NoError(t, err)
	assert.True(t, res.AutoSuspended)
	require.NotNil(t, res.SuspendedUntil)
	assert.Equal(t, f.now.Add(config.SuspensionLevel1Duration), *res.SuspendedUntil)

	user, err := f.store.GetUser(f.ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountSuspended, user.Status)
	assert.Zero(t, user.WarningCount)
	assert.Equal(t, 1, user.SuspensionLevel)
	assert.True(t, user.IsSuspendedAt(f.now))

	types := f.notifier.types(f.alice.ID)
	assert.Len(t, types, config.WarningsBeforeSuspension+1)
	assert.Contains(t, types, models.NotificationAccountSuspended)

	entries, total, err := f.svc.ListAudit(f.ctx, f.admin, paging.New(1, 20))
	require.NoError(t, err)
	assert.EqualValues(t, config.WarningsBeforeSuspension, total)
	assert.Equal(t, f.moderator.UserID, entries[0].ActorID)
	assert.Equal(t, f.alice.ID, entries[0].TargetUserID)
}

func TestPerformAction_SuspensionEscalatesForRepeatOffenders(t *testing.T) {
	f := newFixture(t)
	recent := f.now.Add(-5 * 24 * time.Hour)
	require.NoError(t, f.store.UpdateUserFields(f.ctx, f.alice.ID, map[string]any{
		"suspension_level":  1,
		"last_suspended_at": recent,
	}))

	res, err := f.svc.PerformAction(f.ctx, f.admin, f.userAction(moderation.ActionSuspendUser))
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(config.SuspensionLevel2Duration), *res.SuspendedUntil)

	user, err := f.store.GetUser(f.ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, user.SuspensionLevel)
}

func TestPerformAction_SuspendWithDuration(t *testing.T) {
	f := newFixture(t)

	in := f.userAction(moderation.ActionSuspendUser)
	in.DurationHours = 6
	res, err := f.svc.PerformAction(f.ctx, f.admin, in)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(6*time.Hour), *res.SuspendedUntil)

	suspended, err := f.store.IsUserSuspended(f.ctx, f.alice.ID)
	require.NoError(t, err)
	assert.True(t, suspended)

	require.NoError(t, f.svc.Unsuspend(f.ctx, f.admin, f.alice.ID))
	user, err := f.store.GetUser(f.ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountActive, user.Status)
	assert.Nil(t, user.SuspendedUntil)
	assert.Equal(t, 1, user.SuspensionLevel)

	err = f.svc.Unsuspend(f.ctx, f.admin, f.alice.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidState))
}

func TestPerformAction_SuspendDurationBounds(t *testing.T) {
	f := newFixture(t)

	for _, hours := range []int{-1, config.MaxSuspensionHours + 1, 3_000_000} {
		in := f.userAction(moderation.ActionSuspendUser)
		in.DurationHours = hours
		_, err := f.svc.PerformAction(f.ctx, f.admin, in)
		require.True(t, apperr.HasCode(err, apperr.CodeValidation), "hours=%d", hours)
		assert.Equal(t, "durationHours", apperr.From(err).Fields[0].Field)
	}

	user, err := f.store.GetUser(f.ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountActive, user.Status)

	in := f.userAction(moderation.ActionSuspendUser)
	in.DurationHours = config.MaxSuspensionHours
	res, err := f.svc.PerformAction(f.ctx, f.admin, in)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(time.Duration(config.MaxSuspensionHours)*time.Hour), *res.SuspendedUntil)
}

func TestPerformAction_ConcurrentWarningsAllCount(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, actor := range []auth.Session{f.admin, f.moderator} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PerformAction(f.ctx, actor, f.userAction(moderation.ActionWarnUser))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	user, err := f.store.GetUser(f.ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, user.WarningCount)
}

func TestPerformAction_DeleteProfile(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, f.alice, f.bob)

	_, err := f.svc.PerformAction(f.ctx, f.admin, f.userAction(moderation.ActionDeleteProfile))
	require.NoError(t, err)

	_, err = f.store.GetUser(f.ctx, f.alice.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	got, err := f.store.GetRequest(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestCancelled, got.Status)
}

func TestPerformAction_ReportResolvedAndDismissed(t *testing.T) {
	f := newFixture(t)
	report := f.report(t, "scam")

	res, err := f.svc.PerformAction(f.ctx, f.moderator, moderation.ActionInput{
		ResourceType: moderation.ResourceReports,
		ResourceID:   report.ID,
		Action:       moderation.ActionWarnUser,
		Notes:        "confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, res.TargetUserID)

	got, err := f.store.GetReport(f.ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, got.Status)
	assert.Equal(t, moderation.ActionWarnUser, got.ActionTaken)
	assert.Equal(t, f.moderator.UserID, got.ResolvedBy)
	assert.Contains(t, f.notifier.types(f.bob.ID), models.NotificationReportResolved)
	assert.Contains(t, f.notifier.types(f.alice.ID), models.NotificationAccountWarning)

	_, err = f.svc.PerformAction(f.ctx, f.moderator, moderation.ActionInput{
		ResourceType: moderation.ResourceReports,
		ResourceID:   report.ID,
		Action:       moderation.ActionReject,
	})
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidState), "a reviewed report cannot be acted on again")

	other := f.report(t, "spam")
	_, err = f.svc.PerformAction(f.ctx, f.moderator, moderation.ActionInput{
		ResourceType: moderation.ResourceReports,
		ResourceID:   other.ID,
		Action:       moderation.ActionReject,
	})
	require.NoError(t, err)
	got, err = f.store.GetReport(f.ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportDismissed, got.Status)
}

func TestCreateReport_Rules(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateReport(f.ctx, f.bob.ID, validation.ReportInput{ReportedUserID: f.bob.ID, Reason: "spam"})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = f.svc.CreateReport(f.ctx, f.bob.ID, validation.ReportInput{ReportedUserID: f.alice.ID, Reason: "boring"})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = f.svc.CreateReport(f.ctx, f.bob.ID, validation.ReportInput{ReportedUserID: uuid.New().String(), Reason: "spam"})
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestListPending_ReportsBySeverity(t *testing.T) {
	f := newFixture(t)
	f.report(t, "spam")
	f.report(t, "scam")

	items, total, err := f.svc.ListPending(f.ctx, f.moderator, moderation.ResourceReports, storage.ModerationFilter{}, paging.New(1, 20))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	reports := items.([]moderation.ReportItem)
	require.Len(t, reports, 2)
	assert.Equal(t, "scam", reports[0].Reason)
	assert.Equal(t, "Bilal", reports[0].Reporter.FullName)
	assert.Equal(t, "Aisha", reports[0].ReportedUser.FullName)

	_, _, err = f.svc.ListPending(f.ctx, f.moderator, moderation.ResourceUsers, storage.ModerationFilter{}, paging.New(1, 20))
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestListPending_SeverityOrderSpansPages(t *testing.T) {
	f := newFixture(t)
	f.report(t, "spam")
	f.report(t, "other")
	f.report(t, "scam")

	var reasons []string
	for pg := 1; pg <= 3; pg++ {
		items, total, err := f.svc.ListPending(f.ctx, f.moderator, moderation.ResourceReports, storage.ModerationFilter{}, paging.New(pg, 1))
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		reports := items.([]moderation.ReportItem)
		require.Len(t, reports, 1)
		reasons = append(reasons, reports[0].Reason)
	}
	assert.Equal(t, []string{"scam", "spam", "other"}, reasons)
}

func TestPerformAction_RequestReview(t *testing.T) {
	f := newFixture(t)
	approved := f.request(t, f.bob, f.alice)

	_, err := f.svc.PerformAction(f.ctx, f.moderator, moderation.ActionInput{
		ResourceType: moderation.ResourceRequests,
		ResourceID:   approved.ID,
		Action:       moderation.ActionApprove,
	})
	require.NoError(t, err)

	got, err := f.store.GetRequest(f.ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, got.ReviewStatus)
	assert.Equal(t, models.RequestPending, got.Status)

	items, total, err := f.svc.ListPending(f.ctx, f.moderator, moderation.ResourceRequests, storage.ModerationFilter{}, paging.New(1, 20))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	_, err = f.svc.PerformAction(f.ctx, f.moderator, moderation.ActionInput{
		ResourceType: moderation.ResourceRequests,
		ResourceID:   approved.ID,
		Action:       moderation.ActionReject,
		Notes:        "inappropriate wording",
	})
	require.NoError(t, err)

	got, err = f.store.GetRequest(f.ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, got.Status)
	assert.Equal(t, "inappropriate wording", got.ResponseReason)
	assert.Contains(t, f.notifier.types(f.bob.ID), models.NotificationRequestRejected)

	// The pair is free again once the request is terminal.
	f.request(t, f.bob, f.alice)
}

func TestPerformAction_MessageApprovalDelivers(t *testing.T) {
	f := newFixture(t)
	msg := f.message(t, f.bob, f.alice)

	items, total, err := f.svc.ListPending(f.ctx, f.moderator, moderation.ResourceMessages, storage.ModerationFilter{}, paging.New(1, 20))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	queued := items.([]moderation.MessageItem)
	require.Len(t, queued, 1)
	assert.Equal(t, "Bilal", queued[0].Sender.FullName)

	_, err = f.svc.PerformAction(f.ctx, f.moderator, moderation.ActionInput{
		ResourceType: moderation.ResourceMessages,
		ResourceID:   strconv.FormatUint(uint64(msg.ID), 10),
		Action:       moderation.ActionApprove,
	})
	require.NoError(t, err)

	require.Len(t, f.deliverer.events, 1)
	assert.Equal(t, f.alice.ID, f.deliverer.events[0].UserID)
	assert.Equal(t, models.EventMessage, f.deliverer.events[0].Event)
	assert.Contains(t, f.notifier.types(f.alice.ID), models.NotificationMessageReceived)

	_, err = f.svc.PerformAction(f.ctx, f.moderator, moderation.ActionInput{
		ResourceType: moderation.ResourceMessages,
		ResourceID:   strconv.FormatUint(uint64(msg.ID), 10),
		Action:       moderation.ActionReject,
	})
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidState))
}

func TestPerformAction_MessageRejectNotifiesSender(t *testing.T) {
	f := newFixture(t)
	msg := f.message(t, f.bob, f.alice)

	_, err := f.svc.PerformAction(f.ctx, f.moderator, moderation.ActionInput{
		ResourceType: moderation.ResourceMessages,
		ResourceID:   strconv.FormatUint(uint64(msg.ID), 10),
		Action:       moderation.ActionReject,
	})
	require.NoError(t, err)

	got, err := f.store.GetMessage(f.ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModerationRejected, got.ModerationStatus)
	assert.Empty(t, f.deliverer.events)
	assert.Equal(t, []models.NotificationType{models.NotificationMessageRejected}, f.notifier.types(f.bob.ID))

	_, err = f.svc.PerformAction(f.ctx, f.moderator, moderation.ActionInput{
		ResourceType: moderation.ResourceMessages,
		ResourceID:   "not-a-number",
		Action:       moderation.ActionReject,
	})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestListPending_DropsMessagesFromDeletedMembers(t *testing.T) {
	f := newFixture(t)
	f.message(t, f.bob, f.alice)
	require.NoError(t, f.store.DeleteUser(f.ctx, f.bob.ID))

	items, total, err := f.svc.ListPending(f.ctx, f.admin, moderation.ResourceMessages, storage.ModerationFilter{}, paging.New(1, 20))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestSetRole(t *testing.T) {
	f := newFixture(t)

	err := f.svc.SetRole(f.ctx, f.moderator, f.alice.ID, models.RoleModerator)
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))

	err = f.svc.SetRole(f.ctx, f.admin, f.alice.ID, "owner")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	require.NoError(t, f.svc.SetRole(f.ctx, f.admin, f.alice.ID, models.RoleModerator))
	user, err := f.store.GetUser(f.ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, user.Role)
}
