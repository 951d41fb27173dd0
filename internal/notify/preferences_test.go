package notify

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/opspulse/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}, &models.NotificationPreferences{}))
	return db
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(openTestDB(t))

	prefs, err := store.GetPreferences(1)
	require.NoError(t, err)
	assert.Nil(t, prefs)

	saved := DefaultPreferences()
	saved.Channels[ChannelGoogleChat] = true
	saved.Categories[CategoryOrder] = CategoryPreference{Enabled: true, Channels: []Channel{ChannelEmail}}
	saved.QuietHours = &QuietHours{Enabled: true, Start: "22:00", End: "06:00"}
	require.NoError(t, store.SavePreferences(1, saved))

	loaded, err := store.GetPreferences(1)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Channels[ChannelGoogleChat])
	assert.Equal(t, []Channel{ChannelEmail}, loaded.Categories[CategoryOrder].Channels)
	require.NotNil(t, loaded.QuietHours)
	assert.Equal(t, "22:00", loaded.QuietHours.Start)

	// Save again updates in place rather than duplicating the row.
	saved.QuietHours = nil
	require.NoError(t, store.SavePreferences(1, saved))
	loaded, err = store.GetPreferences(1)
	require.NoError(t, err)
	assert.Nil(t, loaded.QuietHours)

	var count int64
	require.NoError(t, store.db.Model(&models.NotificationPreferences{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestResolverFallsBackToDefaults(t *testing.T) {
	store := NewStore(openTestDB(t))
	resolver := NewResolver(store)

	// Unknown user: defaults, never an error.
	prefs := resolver.Resolve(99)
	require.NotNil(t, prefs)
	assert.True(t, prefs.Channels[ChannelInApp])
	assert.True(t, prefs.Channels[ChannelEmail])
	assert.False(t, prefs.Channels[ChannelGoogleChat])
	assert.Empty(t, prefs.Categories)
	assert.Nil(t, prefs.QuietHours)

	// Corrupt payload: defaults again.
	require.NoError(t, store.db.Create(&models.NotificationPreferences{UserID: 7, Payload: "{not json"}).Error)
	prefs = resolver.Resolve(7)
	assert.True(t, prefs.Channels[ChannelInApp])

	// Stored payload wins when present and valid.
	custom := DefaultPreferences()
	custom.Channels[ChannelEmail] = false
	require.NoError(t, store.SavePreferences(3, custom))
	prefs = resolver.Resolve(3)
	assert.False(t, prefs.Channels[ChannelEmail])
}

func TestInAppSenderWritesRow(t *testing.T) {
	db := openTestDB(t)
	s := NewInAppSender(db)

	id, err := s.Send(context.Background(), Recipient{UserID: 5}, &Params{
		Title:       "Payment received",
		Message:     "Invoice INV-12 was paid",
		Category:    CategoryPayment,
		Priority:    PriorityNormal,
		ActionURL:   "/invoices/12",
		ActionLabel: "View invoice",
		Metadata:    map[string]string{"invoice": "INV-12"},
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	var row models.Notification
	require.NoError(t, db.First(&row, id).Error)
	assert.EqualValues(t, 5, row.UserID)
	assert.Equal(t, "Payment received", row.Title)
	assert.Equal(t, "payment", row.Type)
	assert.Equal(t, "normal", row.Priority)
	assert.Equal(t, "/invoices/12", row.Link)
	assert.False(t, row.Read)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(row.Data), &data))
	assert.Equal(t, "View invoice", data["action_label"])
}

func TestRenderEmailHTML(t *testing.T) {
	html, err := renderEmailHTML(Recipient{Name: "Dana"}, &Params{
		Title:     "Order shipped",
		Message:   "Order #9 left the warehouse",
		ActionURL: "https://app.example.com/orders/9",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Hi Dana,")
	assert.Contains(t, html, "Order #9 left the warehouse")
	assert.Contains(t, html, `href="https://app.example.com/orders/9"`)
	assert.Contains(t, html, "View details") // default CTA label

	// No action URL: no button markup.
	html, err = renderEmailHTML(Recipient{}, &Params{Title: "t", Message: "m"})
	require.NoError(t, err)
	assert.False(t, strings.Contains(html, "href="))
}

func TestEmailSenderRequiresAddress(t *testing.T) {
	s := NewEmailSender("localhost", 587, "noreply@example.com", "secret")
	_, err := s.Send(context.Background(), Recipient{}, &Params{Title: "t"})
	require.EqualError(t, err, "No email address provided")
}
