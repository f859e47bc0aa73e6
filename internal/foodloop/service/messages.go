package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"foodloop/internal/foodloop/models"
	"foodloop/internal/foodloop/repository"
)

type ContactInput struct {
	Name    string `json:"name" yaml:"name"`
	Email   string `json:"email" yaml:"email"`
	Subject string `json:"subject" yaml:"subject"`
	Message string `json:"message" yaml:"message"`
}

// ============================================================
// Contact Messages
// ============================================================

type MessageService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func NewMessageService(repo *repository.Repository, logger *zap.Logger) *MessageService {
	return &MessageService{repo: repo, logger: logger}
}

// Submit сохраняет сообщение из публичной формы обратной связи.
func (s *MessageService) Submit(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Message = strings.TrimSpace(in.Message)
	if in.Name == "" {
		return nil, invalid("name required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalid("invalid email %q", in.Email)
	}
	if in.Message == "" {
		return nil, invalid("message required")
	}

	m := &models.ContactMessage{
		ID:      uuid.NewString(),
		Name:    in.Name,
		Email:   strings.TrimSpace(in.Email),
		Subject: strings.TrimSpace(in.Subject),
		Message: in.Message,
		Replies: []models.Reply{},
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("contact message received", zap.String("message_id", m.ID))
	return m, nil
}

func (s *MessageService) List(ctx context.Context, actor Actor) ([]models.ContactMessage, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, ErrForbidden
	}
	items, err := s.repo.ListMessages(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.ContactMessage{}
	}
	return items, nil
}

// Reply добавляет ответ администратора.
func (s *MessageService) Reply(ctx context.Context, actor Actor, messageID, body string) (*models.Reply, error) {
	if !actor.Is(models.RoleAdmin) {
		return nil, ErrForbidden
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalid("reply body required")
	}

	rp := &models.Reply{
		ID:        uuid.NewString(),
		MessageID: messageID,
		AdminID:   actor.ID,
		Body:      body,
	}
	if err := s.repo.AddReply(ctx, rp); err != nil {
		return nil, err
	}
	s.logger.Info("contact message replied", zap.String("message_id", messageID), zap.String("admin_id", actor.ID))
	return rp, nil
}
