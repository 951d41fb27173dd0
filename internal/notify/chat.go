package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// ErrWebhookDisabled marks the "no webhook URL configured" state. It is a
// feature toggle, not a misconfiguration: the send reports success:false and
// nothing is logged.
var ErrWebhookDisabled = errors.New("chat webhook not configured")

// ChatSender posts a card payload to a Google Chat incoming webhook. The
// webhook is space-scoped, so the recipient only influences the card text.
type ChatSender struct {
	webhookURL string
	client     *http.Client
}

func NewChatSender(webhookURL string) *ChatSender {
	return &ChatSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type chatMessage struct {
	Text  string     `json:"text,omitempty"`
	Cards []chatCard `json:"cards"`
}

type chatCard struct {
	Header   chatHeader    `json:"header"`
	Sections []chatSection `json:"sections"`
}

type chatHeader struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

type chatSection struct {
	Widgets []chatWidget `json:"widgets"`
}

type chatWidget struct {
	TextParagraph *chatText     `json:"textParagraph,omitempty"`
	KeyValue      *chatKeyValue `json:"keyValue,omitempty"`
}

type chatText struct {
	Text string `json:"text"`
}

type chatKeyValue struct {
	TopLabel string `json:"topLabel"`
	Content  string `json:"content"`
}

func (s *ChatSender) Channel() Channel {
	return ChannelGoogleChat
}

func (s *ChatSender) Send(ctx context.Context, rcpt Recipient, p *Params) (uint, error) {
	if s.webhookURL == "" {
		return 0, ErrWebhookDisabled
	}

	payload, err := json.Marshal(buildChatMessage(p))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal chat message: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build chat request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send chat message: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("chat webhook returned status %d", resp.StatusCode)
	}
	return 0, nil
}

func buildChatMessage(p *Params) *chatMessage {
	widgets := []chatWidget{
		{TextParagraph: &chatText{Text: p.Message}},
	}

	// Stable metadata order keeps cards diffable across sends.
	keys := make([]string, 0, len(p.Metadata))
	for k := range p.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		widgets = append(widgets, chatWidget{
			KeyValue: &chatKeyValue{TopLabel: k, Content: p.Metadata[k]},
		})
	}
	if p.ActionURL != "" {
		label := p.ActionLabel
		if label == "" {
			label = "Open"
		}
		widgets = append(widgets, chatWidget{
			TextParagraph: &chatText{Text: fmt.Sprintf(`<a href="%s">%s</a>`, p.ActionURL, label)},
		})
	}

	return &chatMessage{
		Cards: []chatCard{
			{
				Header: chatHeader{
					Title:    fmt.Sprintf("%s %s", priorityIcon(p.Priority), p.Title),
					Subtitle: string(p.Category),
				},
				Sections: []chatSection{{Widgets: widgets}},
			},
		},
	}
}

func priorityIcon(priority Priority) string {
	switch priority {
	case PriorityUrgent:
		return "🚨"
	case PriorityHigh:
		return "⚠️"
	case PriorityLow:
		return "ℹ️"
	default:
		return "🔔"
	}
}
