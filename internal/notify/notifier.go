package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/opspulse/internal/models"
)

// UserDirectory is the recipient-directory boundary used by the convenience
// senders.
type UserDirectory interface {
	UserByID(id uint) (*models.User, error)
	ListByRole(role models.Role) ([]models.User, error)
}

type Options struct {
	// MaxConcurrentSends bounds the recipient fan-out.
	MaxConcurrentSends int
	// SendTimeout bounds each individual channel send so one slow transport
	// cannot stall the whole fan-out.
	SendTimeout time.Duration
}

// Notifier fans one logical notification out to N recipients x M channels.
// Recipients run on a bounded worker pool, the (at most three) channels of a
// recipient on plain goroutines with a join; every channel failure is
// isolated into its own DeliveryStatus.
type Notifier struct {
	senders   map[Channel]Sender
	resolver  *Resolver
	directory UserDirectory
	pool      pond.Pool
	timeout   time.Duration
	now       func() time.Time
}

func NewNotifier(resolver *Resolver, directory UserDirectory, senders []Sender, opts Options) *Notifier {
	if opts.MaxConcurrentSends <= 0 {
		opts.MaxConcurrentSends = 8
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}

	byChannel := make(map[Channel]Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}

	return &Notifier{
		senders:   byChannel,
		resolver:  resolver,
		directory: directory,
		pool:      pond.NewPool(opts.MaxConcurrentSends),
		timeout:   opts.SendTimeout,
		now:       time.Now,
	}
}

// Close drains in-flight sends and stops the pool.
func (n *Notifier) Close() {
	n.pool.StopAndWait()
}

// Send delivers params to every recipient and returns one Result per
// recipient, in recipient order. It never returns an error: policy
// suppression is silence and transport failures live in the per-channel
// statuses.
func (n *Notifier) Send(ctx context.Context, p *Params) []Result {
	results := make([]Result, len(p.Recipients))
	group := n.pool.NewGroup()
	for i := range p.Recipients {
		i := i
		group.Submit(func() {
			results[i] = n.sendToRecipient(ctx, p.Recipients[i], p)
		})
	}
	group.Wait()
	return results
}

// SendToUser resolves one user through the directory and delivers to them.
func (n *Notifier) SendToUser(ctx context.Context, userID uint, p *Params) (Result, error) {
	user, err := n.directory.UserByID(userID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to find user %d: %v", userID, err)
	}

	scoped := *p
	scoped.Recipients = []Recipient{RecipientFromUser(user)}
	return n.Send(ctx, &scoped)[0], nil
}

// SendToAdmins delivers to every active admin.
func (n *Notifier) SendToAdmins(ctx context.Context, p *Params) ([]Result, error) {
	admins, err := n.directory.ListByRole(models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %v", err)
	}
	if len(admins) == 0 {
		return nil, nil
	}

	scoped := *p
	scoped.Recipients = make([]Recipient, 0, len(admins))
	for i := range admins {
		scoped.Recipients = append(scoped.Recipients, RecipientFromUser(&admins[i]))
	}
	return n.Send(ctx, &scoped), nil
}

// SendToUsersWithPermission should route to every user holding the
// permission. Permission resolution is not wired up yet, so this falls back
// to the admin set and says so in the log rather than pretending RBAC
// routing exists.
func (n *Notifier) SendToUsersWithPermission(ctx context.Context, permission string, p *Params) ([]Result, error) {
	log.Printf("permission-based routing for %q not implemented, falling back to admins", permission)
	return n.SendToAdmins(ctx, p)
}

func (n *Notifier) sendToRecipient(ctx context.Context, rcpt Recipient, p *Params) Result {
	result := Result{
		UserID:   rcpt.UserID,
		Delivery: make(map[Channel]DeliveryStatus),
	}

	prefs := rcpt.Preferences
	if prefs == nil {
		prefs = n.resolver.Resolve(rcpt.UserID)
	}

	channels := SelectChannels(p, prefs, n.now())
	if len(channels) == 0 {
		// Preferences or quiet hours suppressed everything. Deliberate
		// silence: no sender is invoked and no error is surfaced.
		return result
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, ch := range channels {
		sender, ok := n.senders[ch]
		if !ok {
			result.Delivery[ch] = DeliveryStatus{Error: fmt.Sprintf("no sender for channel %s", ch)}
			continue
		}

		wg.Add(1)
		go func(ch Channel, sender Sender) {
			defer wg.Done()
			id, err := n.sendWithTimeout(ctx, sender, rcpt, p)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Delivery[ch] = DeliveryStatus{Error: err.Error()}
				if !errors.Is(err, ErrWebhookDisabled) {
					log.Printf("failed to send %s notification to user %d: %v", ch, rcpt.UserID, err)
				}
				return
			}
			result.Delivery[ch] = DeliveryStatus{Success: true}
			result.Success = true
			if ch == ChannelInApp && id != 0 {
				result.NotificationID = id
			}
		}(ch, sender)
	}
	wg.Wait()
	return result
}

func (n *Notifier) sendWithTimeout(ctx context.Context, sender Sender, rcpt Recipient, p *Params) (uint, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	type outcome struct {
		id  uint
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		id, err := sender.Send(ctx, rcpt, p)
		done <- outcome{id: id, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("send on %s timed out after %s", sender.Channel(), n.timeout)
		}
		return 0, fmt.Errorf("send on %s canceled: %v", sender.Channel(), ctx.Err())
	case o := <-done:
		return o.id, o.err
	}
}

// RecipientFromUser maps a directory user onto a delivery recipient.
func RecipientFromUser(u *models.User) Recipient {
	return Recipient{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name(),
	}
}
