package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/localhelp-backend/internal/goroutine"
	"github.com/ignatzorin/localhelp-backend/internal/logger"
	"github.com/ignatzorin/localhelp-backend/internal/models"
)

// NotificationStore описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// WSNotifier интерфейс для отправки WebSocket уведомлений.
type WSNotifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// NotificationService сохраняет уведомления и рассылает их по WebSocket.
type NotificationService struct {
	repo NotificationStore
	hub  WSNotifier
}

func NewNotificationService(repo NotificationStore) *NotificationService {
	return &NotificationService{repo: repo}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *NotificationService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// Notify сохраняет уведомление и отправляет его пользователю по WebSocket.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, nType, title, message string, metadata map[string]interface{}) error {
	var raw json.RawMessage
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			raw = b
		}
	}

	n := &models.Notification{
		UserID:   userID,
		Type:     nType,
		Title:    title,
		Message:  message,
		Metadata: raw,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	if s.hub != nil {
		_ = s.hub.BroadcastToUser(userID, "notification.new", n)
	}
	return nil
}

// NotifyAsync отправляет уведомление в фоне, не блокируя основную операцию.
// Сбой доставки логируется и не влияет на вызвавший переход состояния.
func (s *NotificationService) NotifyAsync(userID uuid.UUID, nType, title, message string, metadata map[string]interface{}) {
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.Notify(ctx, userID, nType, title, message, metadata); err != nil {
			logger.Errorf("notification service: не удалось отправить уведомление пользователю %s: %v", userID, err)
		}
	})
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// MarkAsRead помечает уведомление прочитанным.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

// MarkAllAsRead помечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// CountUnread возвращает число непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
