package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/models"
	"zawaj/backend/internal/paging"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Storage is the persistence boundary used by the services. Get* methods
// return an apperr NotFound error when the row does not exist.
type Storage interface {
	InTransaction(ctx context.Context, fn func(tx Storage) error) error

	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserForUpdate(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error)
	UpdateUserFields(ctx context.Context, id string, updates map[string]any) error
	DeleteUser(ctx context.Context, id string) error

	AddBookmark(ctx context.Context, bookmark *models.Bookmark) error
	RemoveBookmark(ctx context.Context, userID, bookmarkedUserID string) error
	ListBookmarks(ctx context.Context, userID string, p paging.Params) ([]models.Bookmark, int64, error)

	CreateRequest(ctx context.Context, req *models.MarriageRequest) error
	GetRequest(ctx context.Context, id string) (*models.MarriageRequest, error)
	FindActiveRequest(ctx context.Context, senderID, receiverID string, bothDirections bool) (*models.MarriageRequest, error)
	UpdateRequestIfStatus(ctx context.Context, id string, expected models.RequestStatus, updates map[string]any) (bool, error)
	UpdateMeetingIf(ctx context.Context, id string, guard MeetingGuard, updates map[string]any) (bool, error)
	ExpireIfPending(ctx context.Context, id string, now time.Time) (bool, error)
	ListRequests(ctx context.Context, filter RequestFilter, p paging.Params) ([]models.MarriageRequest, int64, error)
	CountRequestsByStatus(ctx context.Context, userID string, sent bool) (map[models.RequestStatus]int64, error)
	ListExpiredPending(ctx context.Context, now time.Time, exclude []string, limit int) ([]models.MarriageRequest, error)
	ListPendingReview(ctx context.Context, filter ModerationFilter, p paging.Params) ([]models.MarriageRequest, int64, error)
	CancelPendingRequestsForUser(ctx context.Context, userID string) (int64, error)

	CreateRoom(ctx context.Context, room *models.ChatRoom) error
	GetRoom(ctx context.Context, roomID string) (*models.ChatRoom, error)
	CloseRoomsForUser(ctx context.Context, userID string, at time.Time) error

	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	ListRoomMessages(ctx context.Context, roomID, viewerID string, p paging.Params) ([]models.Message, int64, error)
	UpdateMessageIfStatus(ctx context.Context, id uint, expected models.ModerationStatus, updates map[string]any) (bool, error)
	ListPendingMessages(ctx context.Context, filter ModerationFilter, p paging.Params) ([]models.Message, int64, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, p paging.Params) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id string, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int64, error)

	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	UpdateReportIfStatus(ctx context.Context, id string, expected models.ReportStatus, updates map[string]any) (bool, error)
	ListPendingReports(ctx context.Context, filter ModerationFilter, p paging.Params) ([]models.Report, int64, error)

	CreateAuditEntry(ctx context.Context, entry *models.AuditEntry) error
	ListAuditEntries(ctx context.Context, p paging.Params) ([]models.AuditEntry, int64, error)

	SetSuspensionFlag(ctx context.Context, userID string, ttl time.Duration) error
	ClearSuspensionFlag(ctx context.Context, userID string) error
	IsUserSuspended(ctx context.Context, userID string) (bool, error)
	PublishEvent(ctx context.Context, event models.RealtimeEvent) error
	SaveTelegramLinkCode(ctx context.Context, code, userID string, ttl time.Duration) error
	ConsumeTelegramLinkCode(ctx context.Context, code string) (string, error)
}

// RequestFilter selects requests for the list endpoints.
type RequestFilter struct {
	SenderID   string
	ReceiverID string
	Status     models.RequestStatus
}

// ModerationFilter narrows the moderation queues.
type ModerationFilter struct {
	UserID string
	From   *time.Time
	To     *time.Time
	Reason string
}

// Service implements Storage on gorm. Redis is optional: without it the
// suspension flag, pub/sub and link codes degrade as documented per method.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.MarriageRequest{},
		&models.Bookmark{},
		&models.Notification{},
		&models.Report{},
		&models.ChatRoom{},
		&models.Message{},
		&models.AuditEntry{},
	)
}

// GormConfig is the gorm configuration shared by the server, the CLI and the
// test databases.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// gormWriter sends gorm's slow query and error lines to the zerolog logger.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	logger.Warn().Str("component", "gorm").Msgf(format, args...)
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// InTransaction runs fn against a Storage bound to one database transaction.
// Redis calls made through tx are not transactional.
func (s *Service) InTransaction(ctx context.Context, fn func(tx Storage) error) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx, Redis: s.Redis})
	})
}

// first loads one row into dest and maps a missing row to NotFound.
func first(q *gorm.DB, dest any, what string) error {
	err := q.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// page counts q and then loads the requested page into dest. Associations
// are preloaded for the page only, never for the count.
func page(q *gorm.DB, p paging.Params, order any, dest any, preloads ...string) (int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	for _, assoc := range preloads {
		q = q.Preload(assoc)
	}
	err := q.Order(order).Offset(p.Offset()).Limit(p.Limit).Find(dest).Error
	return total, err
}

// applyModerationFilter adds the shared created_at and user filters. The
// user filter matches the given columns.
func applyModerationFilter(q *gorm.DB, table string, f ModerationFilter, userColumns ...string) *gorm.DB {
	if f.UserID != "" && len(userColumns) > 0 {
		cond := ""
		args := make([]any, 0, len(userColumns))
		for i, col := range userColumns {
			if i > 0 {
				cond += " OR "
			}
			cond += table + "." + col + " = ?"
			args = append(args, f.UserID)
		}
		q = q.Where(cond, args...)
	}
	if f.From != nil {
		q = q.Where(table+".created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where(table+".created_at <= ?", *f.To)
	}
	return q
}
