package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/opspulse/internal/models"
	"gorm.io/gorm"
)

// PreferenceStore is the persisted-preferences boundary. Get returns
// (nil, nil) when the user has no stored record; that is the common case,
// not an error.
type PreferenceStore interface {
	GetPreferences(userID uint) (*Preferences, error)
	SavePreferences(userID uint, prefs *Preferences) error
}

// DefaultPreferences is the effective policy for users without a stored
// record: every category enabled, in-app and email on, chat off, no quiet
// hours.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Channels: map[Channel]bool{
			ChannelInApp:      true,
			ChannelEmail:      true,
			ChannelGoogleChat: false,
		},
		Categories: map[Category]CategoryPreference{},
	}
}

// Store persists preferences as a JSON payload per user.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetPreferences(userID uint) (*Preferences, error) {
	var row models.NotificationPreferences
	err := s.db.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for user %d: %v", userID, err)
	}

	var prefs Preferences
	if err := json.Unmarshal([]byte(row.Payload), &prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences for user %d: %v", userID, err)
	}
	return &prefs, nil
}

func (s *Store) SavePreferences(userID uint, prefs *Preferences) error {
	payload, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %v", err)
	}

	var row models.NotificationPreferences
	err = s.db.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.NotificationPreferences{UserID: userID, Payload: string(payload)}
		return s.db.Create(&row).Error
	}
	if err != nil {
		return fmt.Errorf("failed to load preferences for user %d: %v", userID, err)
	}

	row.Payload = string(payload)
	return s.db.Save(&row).Error
}

// Resolver produces the effective preferences for a recipient, falling back
// to defaults for unknown users and store failures. It never errors outward.
type Resolver struct {
	store PreferenceStore
}

func NewResolver(store PreferenceStore) *Resolver {
	return &Resolver{store: store}
}

func (r *Resolver) Resolve(userID uint) *Preferences {
	if r == nil || r.store == nil {
		return DefaultPreferences()
	}
	prefs, err := r.store.GetPreferences(userID)
	if err != nil {
		log.Printf("Warning: falling back to default preferences for user %d: %v", userID, err)
		return DefaultPreferences()
	}
	if prefs == nil {
		return DefaultPreferences()
	}
	return prefs
}
