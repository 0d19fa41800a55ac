// Package dispatch implements the order SMS notification pipeline: trigger →
// eligibility checks → phone normalization → template rendering → gateway
// call → outcome recording.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/common-repository/sms-manager/internal/events"
	"github.com/common-repository/sms-manager/internal/metrics"
	"github.com/common-repository/sms-manager/internal/notice"
	"github.com/common-repository/sms-manager/internal/phone"
	"github.com/common-repository/sms-manager/internal/repo"
	"github.com/common-repository/sms-manager/internal/settings"
	"github.com/common-repository/sms-manager/internal/template"
	"github.com/common-repository/sms-manager/internal/twilio"
)

const dateLayout = "2006-01-02 15:04:05"

// Trigger identifies which entry point started a dispatch.
const (
	TriggerManual    = "manual"
	TriggerAutomatic = "automatic"
)

// Dispatch outcomes recorded in metrics.
const (
	outcomeSent         = "sent"
	outcomeFailed       = "failed"
	outcomeSkipped      = "skipped"
	outcomeDisabled     = "disabled"
	outcomeDeduplicated = "deduplicated"
	outcomeError        = "error"
)

// SettingsSource provides a fresh settings snapshot per dispatch.
type SettingsSource interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// OrderStore is the slice of the repository the dispatcher needs.
type OrderStore interface {
	GetOrderByID(ctx context.Context, id int64) (*repo.Order, error)
	AppendOrderNote(ctx context.Context, orderID int64, note string) error
}

// Gateway sends one SMS per call with the supplied credentials.
type Gateway interface {
	Send(ctx context.Context, creds twilio.Credentials, to, body string) error
}

// NoticeSink queues one-time admin notices.
type NoticeSink interface {
	Add(ctx context.Context, n notice.Notice) error
}

// Guard records a one-shot flag; it reports false when the flag already
// existed. Used for the opt-in automatic-trigger idempotency guard.
type Guard interface {
	SetFlag(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Config tunes dispatcher behavior.
type Config struct {
	// TriggerStatus is the order status whose transition fires the
	// automatic notification.
	TriggerStatus string
	// DedupEnabled suppresses repeat automatic sends for the same order and
	// status. Manual sends always go out.
	DedupEnabled bool
	DedupTTL     time.Duration
}

// Dispatcher runs the notification pipeline for manual and automatic
// triggers. Every dispatch runs synchronously inside the triggering event's
// handler; there is no retry loop anywhere.
type Dispatcher struct {
	settings SettingsSource
	orders   OrderStore
	gateway  Gateway
	notices  NoticeSink
	guard    Guard
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config
}

// New creates a Dispatcher. guard may be nil when deduplication is disabled.
func New(
	settingsSource SettingsSource,
	orders OrderStore,
	gateway Gateway,
	notices NoticeSink,
	guard Guard,
	metricRegistry *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Dispatcher {
	if cfg.TriggerStatus == "" {
		cfg.TriggerStatus = "completed"
	}
	return &Dispatcher{
		settings: settingsSource,
		orders:   orders,
		gateway:  gateway,
		notices:  notices,
		guard:    guard,
		metrics:  metricRegistry,
		logger:   logger.With("component", "dispatch"),
		cfg:      cfg,
	}
}

// Register subscribes the dispatcher's handlers on the event bus.
func (d *Dispatcher) Register(bus *events.Bus) {
	bus.Subscribe(events.ManualSendRequested, d.HandleManualSend)
	bus.Subscribe(events.OrderStatusChanged, d.HandleStatusChange)
}

// HandleManualSend processes the admin "send order SMS to customer" action.
// When the feature is disabled it queues a one-time admin notice instead of
// sending.
func (d *Dispatcher) HandleManualSend(ctx context.Context, evt events.Event) {
	logger := d.logger.With("trigger", TriggerManual, "order_id", eventOrderID(evt), "dispatch_id", uuid.NewString())

	st, err := d.settings.Load(ctx)
	if err != nil {
		d.count(TriggerManual, outcomeError)
		logger.Error("loading settings failed", "error", err)
		return
	}

	if !st.Enabled {
		d.count(TriggerManual, outcomeDisabled)
		if err := d.notices.Add(ctx, notice.Notice{
			Message: "SMS notification is not enabled. Please configure the SMS settings to send the SMS notifications.",
			Type:    notice.TypeError,
		}); err != nil {
			logger.Error("queueing disabled notice failed", "error", err)
		}
		return
	}

	d.run(ctx, logger, TriggerManual, evt, st)
}

// HandleStatusChange processes an order status transition and dispatches when
// the new status matches the configured trigger status. Disabled or
// non-matching events are dropped silently.
func (d *Dispatcher) HandleStatusChange(ctx context.Context, evt events.Event) {
	if evt.Status != d.cfg.TriggerStatus {
		return
	}

	logger := d.logger.With("trigger", TriggerAutomatic, "order_id", eventOrderID(evt), "dispatch_id", uuid.NewString())

	st, err := d.settings.Load(ctx)
	if err != nil {
		d.count(TriggerAutomatic, outcomeError)
		logger.Error("loading settings failed", "error", err)
		return
	}

	if !st.Enabled {
		d.count(TriggerAutomatic, outcomeDisabled)
		return
	}

	if d.cfg.DedupEnabled && d.guard != nil {
		key := fmt.Sprintf("smsm:notified:%d:%s", eventOrderID(evt), evt.Status)
		first, err := d.guard.SetFlag(ctx, key, d.cfg.DedupTTL)
		if err != nil {
			// The guard is best-effort; on error prefer at-least-once over
			// a dropped notification.
			logger.Warn("dedup guard unavailable", "error", err)
		} else if !first {
			d.count(TriggerAutomatic, outcomeDeduplicated)
			logger.Info("duplicate automatic dispatch suppressed")
			return
		}
	}

	d.run(ctx, logger, TriggerAutomatic, evt, st)
}

// run executes pipeline steps 2-9 for an enabled dispatch. Eligibility
// short-circuits return without a note or a log entry; once the gateway is
// invoked, exactly one note is appended to the order.
func (d *Dispatcher) run(ctx context.Context, logger *slog.Logger, trigger string, evt events.Event, st settings.Settings) {
	ord := evt.Order
	if ord == nil {
		resolved, err := d.orders.GetOrderByID(ctx, evt.OrderID)
		if err != nil {
			d.count(trigger, outcomeError)
			logger.Error("resolving order failed", "error", err)
			return
		}
		ord = resolved
	}

	content := st.MessageTemplate
	if content == "" {
		content = template.Default
	}

	if ord.BillingPhone == "" || ord.BillingCountry == "" || content == "" {
		d.count(trigger, outcomeSkipped)
		return
	}

	to := phone.Normalize(ord.BillingPhone, ord.BillingCountry)

	message := template.Sanitize(template.Render(content, map[string]string{
		template.PlaceholderOrderNumber: ord.Number,
		template.PlaceholderOrderStatus: ord.Status,
		template.PlaceholderTotalAmount: ord.Total,
		template.PlaceholderOrderDate:   ord.CreatedAt.Format(dateLayout),
	}))

	err := d.gateway.Send(ctx, twilio.Credentials{
		AccountSID: st.AccountSID,
		AuthToken:  st.AuthToken,
		From:       st.FromNumber,
	}, to, message)

	var note string
	if err != nil {
		d.count(trigger, outcomeFailed)
		logger.Warn("sms send failed", "error", err)
		note = fmt.Sprintf("Failed to send SMS notification. Error: %s", err.Error())
	} else {
		d.count(trigger, outcomeSent)
		logger.Info("sms notification sent", "to", to)
		note = fmt.Sprintf("SMS notification sent successfully. Customer phone number: %s", to)
	}

	if noteErr := d.orders.AppendOrderNote(ctx, ord.ID, note); noteErr != nil {
		if d.metrics != nil {
			d.metrics.Errors.WithLabelValues("dispatch_note").Inc()
		}
		logger.Error("appending order note failed", "error", noteErr)
	}
}

func (d *Dispatcher) count(trigger, outcome string) {
	if d.metrics == nil {
		return
	}
	d.metrics.Dispatches.WithLabelValues(trigger, outcome).Inc()
}

func eventOrderID(evt events.Event) int64 {
	if evt.Order != nil {
		return evt.Order.ID
	}
	return evt.OrderID
}
