package notify

import (
	"context"
)

type Channel string

const (
	ChannelInApp      Channel = "in_app"
	ChannelEmail      Channel = "email"
	ChannelGoogleChat Channel = "google_chat"
)

// AllChannels returns every deliverable channel in preference-fallback order.
func AllChannels() []Channel {
	return []Channel{ChannelInApp, ChannelEmail, ChannelGoogleChat}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Category string

const (
	CategoryOrder   Category = "order"
	CategoryTask    Category = "task"
	CategoryQuality Category = "quality"
	CategoryPayment Category = "payment"
	CategoryAlert   Category = "alert"
	CategorySystem  Category = "system"
)

// QuietHours is a per-user local-time window suppressing non-urgent delivery.
// Start and End are HH:mm strings; Start > End means the window crosses
// midnight.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type CategoryPreference struct {
	Enabled  bool      `json:"enabled"`
	Channels []Channel `json:"channels"`
}

// Preferences is a user's effective delivery policy. A category missing from
// Categories is enabled and falls back to the per-channel opt-ins.
type Preferences struct {
	Channels   map[Channel]bool                `json:"channels"`
	Categories map[Category]CategoryPreference `json:"categories"`
	QuietHours *QuietHours                     `json:"quiet_hours,omitempty"`
}

// Recipient identifies one delivery target. When Preferences is set inline
// (pre-resolved batch sends) the resolver is bypassed for this recipient.
type Recipient struct {
	UserID      uint         `json:"user_id"`
	Email       string       `json:"email,omitempty"`
	Name        string       `json:"name,omitempty"`
	Preferences *Preferences `json:"-"`
}

// Params describes one logical notification, possibly fanned out to many
// recipients. A non-empty Channels list is an explicit override: preferences
// are not consulted at all, so system-critical traffic can force delivery.
type Params struct {
	Recipients  []Recipient       `json:"recipients"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Category    Category          `json:"category"`
	Priority    Priority          `json:"priority"`
	Channels    []Channel         `json:"channels,omitempty"`
	ActionURL   string            `json:"action_url,omitempty"`
	ActionLabel string            `json:"action_label,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type DeliveryStatus struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Result aggregates one recipient's delivery outcome. Success is true iff at
// least one channel succeeded; each channel's status is recorded
// independently of its siblings.
type Result struct {
	UserID         uint                       `json:"user_id"`
	Success        bool                       `json:"success"`
	NotificationID uint                       `json:"notification_id,omitempty"`
	Delivery       map[Channel]DeliveryStatus `json:"delivery_status"`
}

// Sender delivers one rendered message to one recipient over a single
// channel. Implementations must convert transport failures into returned
// errors rather than panicking; the id is non-zero only for the in-app
// channel.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, rcpt Recipient, p *Params) (uint, error)
}
