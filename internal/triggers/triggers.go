// Package triggers turns business events into notifications. Trigger
// functions decide what to say and who hears it; how delivery happens is
// entirely the notifier's concern.
package triggers

import (
	"context"
	"fmt"

	"github.com/opspulse/internal/directory"
	"github.com/opspulse/internal/notify"
	"github.com/opspulse/internal/threshold"
)

type Triggers struct {
	notifier  *notify.Notifier
	directory *directory.Directory
}

func New(notifier *notify.Notifier, dir *directory.Directory) *Triggers {
	return &Triggers{notifier: notifier, directory: dir}
}

// OrderStatusChanged notifies the order's owner.
func (t *Triggers) OrderStatusChanged(ctx context.Context, ownerID uint, orderNumber, status string) (notify.Result, error) {
	return t.notifier.SendToUser(ctx, ownerID, &notify.Params{
		Title:       fmt.Sprintf("Order %s is now %s", orderNumber, status),
		Message:     fmt.Sprintf("The status of order %s changed to %s.", orderNumber, status),
		Category:    notify.CategoryOrder,
		Priority:    notify.PriorityNormal,
		ActionURL:   fmt.Sprintf("/orders/%s", orderNumber),
		ActionLabel: "View order",
		Metadata:    map[string]string{"order": orderNumber, "status": status},
	})
}

// TaskAssigned notifies the assignee.
func (t *Triggers) TaskAssigned(ctx context.Context, assigneeID uint, taskTitle, assignedBy string) (notify.Result, error) {
	return t.notifier.SendToUser(ctx, assigneeID, &notify.Params{
		Title:       "New task assigned to you",
		Message:     fmt.Sprintf("%s assigned you the task %q.", assignedBy, taskTitle),
		Category:    notify.CategoryTask,
		Priority:    notify.PriorityNormal,
		ActionURL:   "/tasks",
		ActionLabel: "Open tasks",
	})
}

// QCFailed alerts the quality department with high priority, falling back to
// admins when the department is empty.
func (t *Triggers) QCFailed(ctx context.Context, batchID, reason string) ([]notify.Result, error) {
	users, err := t.directory.ListByDepartment("quality")
	if err != nil {
		return nil, err
	}

	p := &notify.Params{
		Title:       fmt.Sprintf("QC failure on batch %s", batchID),
		Message:     fmt.Sprintf("Batch %s failed quality control: %s", batchID, reason),
		Category:    notify.CategoryQuality,
		Priority:    notify.PriorityHigh,
		ActionURL:   fmt.Sprintf("/qc/batches/%s", batchID),
		ActionLabel: "Review batch",
		Metadata:    map[string]string{"batch": batchID, "reason": reason},
	}

	if len(users) == 0 {
		return t.notifier.SendToAdmins(ctx, p)
	}

	p.Recipients = make([]notify.Recipient, 0, len(users))
	for i := range users {
		p.Recipients = append(p.Recipients, notify.RecipientFromUser(&users[i]))
	}
	return t.notifier.Send(ctx, p), nil
}

// PaymentReceived notifies users allowed to see finance events.
func (t *Triggers) PaymentReceived(ctx context.Context, invoiceNumber string, amount float64) ([]notify.Result, error) {
	return t.notifier.SendToUsersWithPermission(ctx, "view_finance", &notify.Params{
		Title:       fmt.Sprintf("Payment received for %s", invoiceNumber),
		Message:     fmt.Sprintf("A payment of %.2f was recorded against invoice %s.", amount, invoiceNumber),
		Category:    notify.CategoryPayment,
		Priority:    notify.PriorityNormal,
		ActionURL:   fmt.Sprintf("/invoices/%s", invoiceNumber),
		ActionLabel: "View invoice",
		Metadata:    map[string]string{"invoice": invoiceNumber, "amount": fmt.Sprintf("%.2f", amount)},
	})
}

// MetricAlert fans a threshold breach out to the admins. The alert's
// severity, not the threshold's declared channels, decides the priority;
// channel routing stays with the recipients' preferences.
func (t *Triggers) MetricAlert(ctx context.Context, alert *threshold.Alert) ([]notify.Result, error) {
	return t.notifier.SendToAdmins(ctx, &notify.Params{
		Title:    fmt.Sprintf("Alert: %s", alert.Metric),
		Message:  alert.Message,
		Category: notify.CategoryAlert,
		Priority: severityPriority(alert.Severity),
		Metadata: map[string]string{
			"alert_id":  alert.ID,
			"threshold": alert.ThresholdID,
			"metric":    alert.Metric,
			"value":     fmt.Sprintf("%.2f", alert.CurrentValue),
			"severity":  string(alert.Severity),
		},
	})
}

func severityPriority(s threshold.Severity) notify.Priority {
	switch s {
	case threshold.SeverityCritical:
		return notify.PriorityUrgent
	case threshold.SeverityWarning:
		return notify.PriorityHigh
	default:
		return notify.PriorityNormal
	}
}
