package triggers

import (
	"context"
	"testing"
	"time"

	"github.com/opspulse/internal/directory"
	"github.com/opspulse/internal/models"
	"github.com/opspulse/internal/notify"
	"github.com/opspulse/internal/threshold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*Triggers, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Notification{}, &models.NotificationPreferences{}))

	users := []models.User{
		{Username: "boss", Role: models.RoleAdmin, Email: "boss@example.com", IsActive: true},
		{Username: "inspector", Role: models.RoleUser, Email: "qc@example.com", Department: "quality", IsActive: true},
		{Username: "former", Role: models.RoleAdmin, Email: "gone@example.com", IsActive: false},
	}
	for i := range users {
		require.NoError(t, users[i].SetPassword("secret"))
		require.NoError(t, db.Create(&users[i]).Error)
	}

	dir := directory.New(db)
	notifier := notify.NewNotifier(
		notify.NewResolver(notify.NewStore(db)),
		dir,
		[]notify.Sender{notify.NewInAppSender(db)},
		notify.Options{SendTimeout: time.Second},
	)
	t.Cleanup(notifier.Close)

	return New(notifier, dir), db
}

func notificationsFor(t *testing.T, db *gorm.DB, username string) []models.Notification {
	t.Helper()
	var user models.User
	require.NoError(t, db.Where("username = ?", username).First(&user).Error)
	var rows []models.Notification
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&rows).Error)
	return rows
}

func TestQCFailedNotifiesQualityDepartment(t *testing.T) {
	trig, db := setup(t)

	results, err := trig.QCFailed(context.Background(), "B-42", "tolerance out of range")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	rows := notificationsFor(t, db, "inspector")
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Title, "B-42")
	assert.Equal(t, "quality", rows[0].Type)
	assert.Equal(t, "high", rows[0].Priority)

	assert.Empty(t, notificationsFor(t, db, "boss"))
}

func TestPaymentReceivedFallsBackToAdmins(t *testing.T) {
	trig, db := setup(t)

	results, err := trig.PaymentReceived(context.Background(), "INV-7", 1250.50)
	require.NoError(t, err)
	require.Len(t, results, 1)

	rows := notificationsFor(t, db, "boss")
	require.Len(t, rows, 1)
	assert.Equal(t, "payment", rows[0].Type)

	// Deactivated admins are not in the directory.
	assert.Empty(t, notificationsFor(t, db, "former"))
}

func TestMetricAlertSeverityMapsToPriority(t *testing.T) {
	trig, db := setup(t)

	alert := &threshold.Alert{
		ID:           "rev-drop-1",
		ThresholdID:  "rev-drop",
		Metric:       "daily_revenue",
		Severity:     threshold.SeverityCritical,
		Message:      "Threshold breached: daily_revenue is 8000.00 (less_than 10000.00)",
		CurrentValue: 8000,
	}
	results, err := trig.MetricAlert(context.Background(), alert)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	rows := notificationsFor(t, db, "boss")
	require.Len(t, rows, 1)
	assert.Equal(t, "alert", rows[0].Type)
	assert.Equal(t, "urgent", rows[0].Priority)

	assert.Equal(t, notify.PriorityHigh, severityPriority(threshold.SeverityWarning))
	assert.Equal(t, notify.PriorityNormal, severityPriority(threshold.SeverityInfo))
}

func TestOrderAndTaskTriggers(t *testing.T) {
	trig, db := setup(t)

	var inspector models.User
	require.NoError(t, db.Where("username = ?", "inspector").First(&inspector).Error)

	r, err := trig.OrderStatusChanged(context.Background(), inspector.ID, "SO-1001", "shipped")
	require.NoError(t, err)
	assert.True(t, r.Success)

	r, err = trig.TaskAssigned(context.Background(), inspector.ID, "Calibrate line A", "boss")
	require.NoError(t, err)
	assert.True(t, r.Success)

	rows := notificationsFor(t, db, "inspector")
	require.Len(t, rows, 2)
}
