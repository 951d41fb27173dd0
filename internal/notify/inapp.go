package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opspulse/internal/models"
	"gorm.io/gorm"
)

// InAppSender writes the durable in-app notification row. It is the only
// sender whose result carries an id.
type InAppSender struct {
	db *gorm.DB
}

func NewInAppSender(db *gorm.DB) *InAppSender {
	return &InAppSender{db: db}
}

func (s *InAppSender) Channel() Channel {
	return ChannelInApp
}

func (s *InAppSender) Send(ctx context.Context, rcpt Recipient, p *Params) (uint, error) {
	data := map[string]interface{}{}
	if p.ActionLabel != "" {
		data["action_label"] = p.ActionLabel
	}
	if p.ImageURL != "" {
		data["image_url"] = p.ImageURL
	}
	if len(p.Metadata) > 0 {
		data["metadata"] = p.Metadata
	}

	var payload string
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal notification data: %v", err)
		}
		payload = string(raw)
	}

	row := models.Notification{
		UserID:   rcpt.UserID,
		Title:    p.Title,
		Message:  p.Message,
		Type:     string(p.Category),
		Priority: string(p.Priority),
		Link:     p.ActionURL,
		Data:     payload,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to save notification: %v", err)
	}
	return row.ID, nil
}
