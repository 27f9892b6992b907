package service

import (
	"time"

	"go-school-library/internal/model"
	"go-school-library/internal/repository"
	"go-school-library/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pusher delivers realtime events to connected clients. uuid.Nil addresses everyone.
type Pusher interface {
	SendJSON(userID uuid.UUID, v interface{})
}

type NotificationService interface {
	// Notify stores one notification and pushes it to the user's open connections.
	// Failures are logged and reported as false, never returned.
	Notify(userID uuid.UUID, borrowingID *uuid.UUID, category model.NotificationCategory, message string) bool
	Send(req *SendNotificationRequest, senderID string) (int, error)
	List(userID uuid.UUID, unreadOnly bool, limit, offset int) ([]model.Notification, int64, error)
	UnreadCount(userID uuid.UUID) (int64, error)
	MarkRead(id, userID uuid.UUID) error
	MarkAllRead(userID uuid.UUID) (int64, error)
}

// SendNotificationRequest addresses an announcement to explicit users, to roles, or
// to every active user when both are empty.
type SendNotificationRequest struct {
	UserIDs []uuid.UUID `json:"user_ids"`
	Roles   []string    `json:"roles" validate:"dive,oneof=ADMIN LIBRARIAN TEACHER STUDENT"`
	Message string      `json:"message" validate:"required,max=1000"`
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	pusher           Pusher
	log              *zap.Logger
}

func NewNotificationService(notificationRepo repository.NotificationRepository, userRepo repository.UserRepository, pusher Pusher, log *zap.Logger) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		pusher:           pusher,
		log:              log,
	}
}

func (s *notificationService) Notify(userID uuid.UUID, borrowingID *uuid.UUID, category model.NotificationCategory, message string) bool {
	n := &model.Notification{
		UserID:      userID,
		BorrowingID: borrowingID,
		Category:    category,
		Message:     message,
	}
	if err := s.notificationRepo.Create(n); err != nil {
		fields := []zap.Field{
			zap.String("user_id", userID.String()),
			zap.String("category", string(category)),
			zap.Error(err),
		}
		if borrowingID != nil {
			fields = append(fields, zap.String("borrowing_id", borrowingID.String()))
		}
		s.log.Warn("notification write failed", fields...)
		return false
	}

	s.push(n)
	return true
}

func (s *notificationService) Send(req *SendNotificationRequest, senderID string) (int, error) {
	// 1. Validate request
	if err := validator.Check(req); err != nil {
		return 0, err
	}

	// 2. Resolve recipients
	recipients := req.UserIDs
	if len(recipients) == 0 {
		ids, err := s.userRepo.FindIDsByRole(req.Roles...)
		if err != nil {
			return 0, err
		}
		recipients = ids
	}

	// 3. Store in one batch
	now := time.Now()
	items := make([]model.Notification, 0, len(recipients))
	for _, id := range recipients {
		items = append(items, model.Notification{
			ID:        uuid.New(),
			UserID:    id,
			Category:  model.NotifyAnnouncement,
			Message:   req.Message,
			CreatedAt: now,
		})
	}
	if err := s.notificationRepo.CreateBatch(items); err != nil {
		return 0, err
	}

	// 4. Push realtime
	for i := range items {
		s.push(&items[i])
	}

	s.log.Info("announcement sent", zap.String("sender_id", senderID), zap.Int("recipients", len(items)))
	return len(items), nil
}

func (s *notificationService) List(userID uuid.UUID, unreadOnly bool, limit, offset int) ([]model.Notification, int64, error) {
	return s.notificationRepo.FindByUser(userID, unreadOnly, limit, offset)
}

func (s *notificationService) UnreadCount(userID uuid.UUID) (int64, error) {
	return s.notificationRepo.CountUnread(userID)
}

func (s *notificationService) MarkRead(id, userID uuid.UUID) error {
	return notFound(s.notificationRepo.MarkRead(id, userID), ErrNotificationNotFound)
}

func (s *notificationService) MarkAllRead(userID uuid.UUID) (int64, error) {
	return s.notificationRepo.MarkAllRead(userID)
}

func (s *notificationService) push(n *model.Notification) {
	if s.pusher == nil {
		return
	}
	s.pusher.SendJSON(n.UserID, map[string]interface{}{
		"type":         "notification",
		"notification": n,
	})
}
