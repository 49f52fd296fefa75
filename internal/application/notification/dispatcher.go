package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/application"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/application/apperr"
	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
)

const (
	dispatcherService = "notification-dispatcher"
	useCaseNotify     = "notification.notify"

	// EventNotification is the realtime event name carried by every push.
	EventNotification = "notification"

	defaultInboxLimit = 50
	pushPeer          = "pubsub"
	pushTimeout       = 2 * time.Second
)

type DispatcherDeps struct {
	Repo   domain.Repository
	Users  user.Directory
	PubSub domain.PubSub
	IDs    application.IDGenerator
	Obs    observability.Observability
	Clock  application.Clock
}

// Dispatcher persists notifications and pushes them to connected clients.
// The stored rows are the source of truth; pushes are best effort.
type Dispatcher struct {
	repo   domain.Repository
	users  user.Directory
	pubsub domain.PubSub
	ids    application.IDGenerator
	ins    *application.Instruments
	now    application.Clock
	pushed observability.Counter // notifications_pushed_total{outcome}
}

func NewDispatcher(deps DispatcherDeps) (*Dispatcher, error) {
	if deps.Repo == nil || deps.Users == nil || deps.IDs == nil {
		return nil, errors.New("notification: repository, user directory and id generator are required")
	}
	obs := observability.OrNop(deps.Obs)
	return &Dispatcher{
		repo:   deps.Repo,
		users:  deps.Users,
		pubsub: deps.PubSub,
		ids:    deps.IDs,
		ins:    application.NewInstruments(obs, dispatcherService),
		now:    deps.Clock.OrSystem(),
		pushed: obs.Metrics().Counter(observability.MNotificationsPushed),
	}, nil
}

// Push is the realtime payload delivered on a user channel.
type Push struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Notify stores one notification with a receipt per recipient, then pushes it.
// Order notifications need explicit recipients; the other kinds default to
// every user with the "user" role.
func (d *Dispatcher) Notify(ctx context.Context, req domain.Request) (_ *domain.Notification, err error) {
	ctx, run := d.ins.Start(ctx, useCaseNotify, "Notify",
		attribute.String("notification.kind", string(req.Kind)),
	)
	defer func() { run.End(err) }()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		run.Fail("TITLE_REQUIRED")
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if !req.Kind.Valid() {
		run.Fail("KIND_INVALID")
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidInput, req.Kind)
	}

	recipients, err := d.resolve(ctx, req)
	if err != nil {
		run.Fail("RECIPIENTS_UNRESOLVED")
		return nil, err
	}

	n := &domain.Notification{
		ID:        d.ids.NewID(),
		Title:     title,
		Content:   strings.TrimSpace(req.Content),
		Kind:      req.Kind,
		CreatedAt: d.now(),
	}
	if err := d.repo.Create(ctx, n, recipients); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, fmt.Errorf("notification: create: %w", err)
	}
	run.Annotate(
		observability.F("notification_id", n.ID),
		observability.F("recipients", len(recipients)),
	)

	if pushErr := d.push(ctx, n, recipients); pushErr != nil {
		run.SetStatus("PUSH_FAILED")
		run.Span().RecordError(pushErr)
		run.Logger().Warn("notification_push_failed",
			observability.F("notification_id", n.ID),
			observability.F("error", pushErr.Error()),
		)
	}
	return n, nil
}

func (d *Dispatcher) resolve(ctx context.Context, req domain.Request) ([]string, error) {
	if len(req.Recipients.UserIDs) > 0 {
		return dedupe(req.Recipients.UserIDs), nil
	}
	if req.Kind == domain.KindOrder && req.Recipients.Role == "" {
		return nil, fmt.Errorf("%w: order notifications need explicit recipients", domain.ErrInvalidInput)
	}
	role := user.RoleUser
	if req.Recipients.Role != "" {
		role = user.Role(req.Recipients.Role)
	}
	ids, err := d.users.ListIDsByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("notification: list %s users: %w", role, err)
	}
	return ids, nil
}

func (d *Dispatcher) push(ctx context.Context, n *domain.Notification, recipients []string) error {
	if d.pubsub == nil || len(recipients) == 0 {
		return nil
	}
	payload := Push{ID: n.ID, Title: n.Title, Content: n.Content, Kind: string(n.Kind), CreatedAt: n.CreatedAt}
	msgs := make([]domain.Message, 0, len(recipients))
	for _, uid := range recipients {
		msgs = append(msgs, domain.Message{Channel: domain.UserChannel(uid), Event: EventNotification, Data: payload})
	}

	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	err := d.ins.External(pushCtx, pushPeer, EventNotification, func(ctx context.Context) error {
		return d.pubsub.Publish(ctx, msgs...)
	})

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	d.pushed.Add(float64(len(msgs)), observability.L("outcome", outcome))
	return err
}

// MarkAsRead is idempotent: marking an already read notification succeeds.
func (d *Dispatcher) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" || notificationID == "" {
		return apperr.Validation("user id and notification id are required")
	}
	if err := d.repo.MarkRead(ctx, notificationID, userID, d.now()); err != nil {
		return fmt.Errorf("notification: mark read: %w", err)
	}
	return nil
}

func (d *Dispatcher) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperr.Validation("user id is required")
	}
	n, err := d.repo.MarkAllRead(ctx, userID, d.now())
	if err != nil {
		return 0, fmt.Errorf("notification: mark all read: %w", err)
	}
	return n, nil
}

// Inbox returns the user's notifications, newest first.
func (d *Dispatcher) Inbox(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.InboxItem, error) {
	if userID == "" {
		return nil, apperr.Validation("user id is required")
	}
	if limit <= 0 || limit > 200 {
		limit = defaultInboxLimit
	}
	return d.repo.ListForUser(ctx, userID, unreadOnly, limit)
}

func (d *Dispatcher) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return d.repo.UnreadCount(ctx, userID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
