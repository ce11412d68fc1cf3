package services

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/sheshield/apiserver/internal/mq"
	"github.com/sheshield/apiserver/types"
)

const publishTimeout = 5 * time.Second

// AlertRepository defines persistence operations for emergency alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert types.EmergencyAlert) (types.EmergencyAlert, error)
	ListByOwner(ctx context.Context, userID int) ([]types.EmergencyAlert, error)
	ListAll(ctx context.Context) ([]types.AdminAlert, error)
	Count(ctx context.Context) (int, error)
}

// AlertEvent is the message published to the notification channel when
// an alert is stored, so a downstream dispatcher can reach the owner's
// emergency contacts.
type AlertEvent struct {
	Alert     types.EmergencyAlert     `json:"alert"`
	UserName  string                   `json:"user_name"`
	UserEmail string                   `json:"user_email"`
	Contacts  []types.EmergencyContact `json:"contacts"`
}

// AlertService encapsulates alert use-cases. When a broker is
// configured, each stored alert fans out as an AlertEvent; publishing
// is best-effort and never fails the request, the stored row is
// authoritative.
type AlertService struct {
	repo     AlertRepository
	users    UserRepository
	contacts ContactRepository
	broker   *mq.MQ
	channel  string
}

func NewAlertService(repo AlertRepository, users UserRepository, contacts ContactRepository, broker *mq.MQ, channel string) *AlertService {
	return &AlertService{
		repo:     repo,
		users:    users,
		contacts: contacts,
		broker:   broker,
		channel:  channel,
	}
}

func (s *AlertService) Create(ctx context.Context, alert types.EmergencyAlert) (types.EmergencyAlert, error) {
	created, err := s.repo.Create(ctx, alert)
	if err != nil {
		return types.EmergencyAlert{}, err
	}

	if s.broker != nil {
		if err := s.publish(ctx, created); err != nil {
			log.Printf("alert %d stored but notification publish failed: %v", created.ID, err)
		}
	}
	return created, nil
}

func (s *AlertService) List(ctx context.Context, userID int) ([]types.EmergencyAlert, error) {
	return s.repo.ListByOwner(ctx, userID)
}

func (s *AlertService) ListAll(ctx context.Context) ([]types.AdminAlert, error) {
	return s.repo.ListAll(ctx)
}

func (s *AlertService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *AlertService) publish(ctx context.Context, alert types.EmergencyAlert) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, alert.UserID)
	if err != nil {
		return err
	}
	contacts, err := s.contacts.ListByOwner(ctx, alert.UserID)
	if err != nil {
		return err
	}

	event := AlertEvent{
		Alert:     alert,
		UserName:  user.Name,
		UserEmail: user.Email,
		Contacts:  contacts,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	attrs := map[string]string{"user_id": strconv.Itoa(alert.UserID)}
	_, err = s.broker.Publish(ctx, s.channel, data, attrs)
	return err
}
