package store

import (
	"time"

	"chatwire/internal/models"
)

// SeedWelcomeMessages fills a fresh store with the standard greeting thread
// so a new deployment doesn't present an empty room.
func SeedWelcomeMessages(s *MemStore) {
	now := s.clock()

	minuteAgo := now.Add(-time.Minute)
	halfMinuteAgo := now.Add(-30 * time.Second)

	welcome := s.CreateMessage(models.MessageDraft{
		Content:    "Добро пожаловать в чат!",
		SenderName: "Система",
		Timestamp:  &now,
	})

	s.CreateMessage(models.MessageDraft{
		Content:    "Привет всем! Как дела?",
		SenderName: "Пользователь",
		Timestamp:  &minuteAgo,
	})

	s.CreateMessage(models.MessageDraft{
		Content:        "У меня всё хорошо! Классный чат!",
		SenderName:     "Гость",
		Timestamp:      &halfMinuteAgo,
		ReplyToID:      models.Int64Ptr(welcome.ID),
		ReplyToContent: models.StringPtr(welcome.Content),
		ReplyToSender:  models.StringPtr(welcome.SenderName),
	})
}
