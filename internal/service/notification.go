package service

import (
	"context"
	"fmt"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/logger"
	"peerrent-backend/internal/repository"

	"github.com/google/uuid"
)

type eventEmitter struct {
	eventRepo repository.EventRepository
	noteRepo  repository.NotificationRepository
	userRepo  repository.UserRepository
	emailSvc  EmailService
}

func NewEventEmitter(
	eventRepo repository.EventRepository,
	noteRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	emailSvc EmailService,
) EventEmitter {
	return &eventEmitter{
		eventRepo: eventRepo,
		noteRepo:  noteRepo,
		userRepo:  userRepo,
		emailSvc:  emailSvc,
	}
}

// Emit persists the event for audit, then fans out in-app and email
// notifications. Fan-out failures are logged and swallowed; the state
// transition has already committed.
func (e *eventEmitter) Emit(ctx context.Context, ev *domain.LifecycleEvent, recipientUserIDs ...string) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if err := e.eventRepo.Create(ctx, ev); err != nil {
		logger.Error("Failed to persist lifecycle event",
			"entity_type", ev.EntityType, "entity_id", ev.EntityID, "error", err)
	}

	title := fmt.Sprintf("%s %s", entityLabel(ev.EntityType), stateLabel(ev.ToState))
	message := fmt.Sprintf("%s %s moved from %s to %s",
		entityLabel(ev.EntityType), ev.EntityID, ev.FromState, ev.ToState)

	for _, userID := range recipientUserIDs {
		if userID == "" {
			continue
		}
		note := &domain.Notification{
			ID:      uuid.NewString(),
			UserID:  userID,
			Title:   title,
			Message: message,
			Attributes: map[string]string{
				"entity_type": string(ev.EntityType),
				"entity_id":   ev.EntityID,
				"to_state":    ev.ToState,
			},
		}
		if err := e.noteRepo.Create(ctx, note); err != nil {
			logger.Error("Failed to create notification", "user_id", userID, "error", err)
		}

		user, err := e.userRepo.GetByID(ctx, userID)
		if err != nil {
			logger.Warn("Skipping email fan-out, user lookup failed", "user_id", userID, "error", err)
			continue
		}
		if err := e.emailSvc.SendLifecycleNotification(ctx, user.Email, user.Name, title, message); err != nil {
			logger.Error("Failed to send lifecycle email", "user_id", userID, "error", err)
		}
	}
}

func entityLabel(t domain.EntityType) string {
	switch t {
	case domain.EntityTypeMasterOrder:
		return "Order"
	case domain.EntityTypeSubOrder:
		return "Sub-order"
	case domain.EntityTypeContract:
		return "Contract"
	case domain.EntityTypeExtension:
		return "Extension request"
	case domain.EntityTypeDispute:
		return "Dispute"
	}
	return string(t)
}

func stateLabel(toState string) string {
	switch toState {
	case string(domain.ContractStatusFullyExecuted):
		return "fully executed"
	case string(domain.OrderStatusPaymentCompleted):
		return "payment received"
	default:
		return "status changed"
	}
}

type notificationService struct {
	noteRepo repository.NotificationRepository
}

func NewNotificationService(noteRepo repository.NotificationRepository) NotificationService {
	return &notificationService{noteRepo: noteRepo}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}
