package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/common-repository/sms-manager/internal/events"
	"github.com/common-repository/sms-manager/internal/notice"
	"github.com/common-repository/sms-manager/internal/repo"
	"github.com/common-repository/sms-manager/internal/settings"
	"github.com/common-repository/sms-manager/internal/twilio"
)

type fakeSettings struct {
	st  settings.Settings
	err error
}

func (f *fakeSettings) Load(ctx context.Context) (settings.Settings, error) {
	return f.st, f.err
}

type appendedNote struct {
	orderID int64
	note    string
}

type fakeOrders struct {
	orders  map[int64]*repo.Order
	lookups int
	notes   []appendedNote
}

func (f *fakeOrders) GetOrderByID(ctx context.Context, id int64) (*repo.Order, error) {
	f.lookups++
	ord, ok := f.orders[id]
	if !ok {
		return nil, repo.ErrOrderNotFound
	}
	return ord, nil
}

func (f *fakeOrders) AppendOrderNote(ctx context.Context, orderID int64, note string) error {
	f.notes = append(f.notes, appendedNote{orderID: orderID, note: note})
	return nil
}

type fakeGateway struct {
	calls     int
	lastCreds twilio.Credentials
	lastTo    string
	lastBody  string
	err       error
}

func (f *fakeGateway) Send(ctx context.Context, creds twilio.Credentials, to, body string) error {
	f.calls++
	f.lastCreds = creds
	f.lastTo = to
	f.lastBody = body
	return f.err
}

type fakeNotices struct {
	notices []notice.Notice
}

func (f *fakeNotices) Add(ctx context.Context, n notice.Notice) error {
	f.notices = append(f.notices, n)
	return nil
}

type fakeGuard struct {
	seen map[string]bool
}

func (f *fakeGuard) SetFlag(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enabledSettings() settings.Settings {
	return settings.Settings{
		Enabled:    true,
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+15550000",
	}
}

func testOrder() *repo.Order {
	return &repo.Order{
		ID:             1,
		Number:         "42",
		Status:         "completed",
		BillingPhone:   "5551234",
		BillingCountry: "US",
		Total:          "19.99",
		CreatedAt:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

type fixture struct {
	settings *fakeSettings
	orders   *fakeOrders
	gateway  *fakeGateway
	notices  *fakeNotices
	guard    *fakeGuard
}

func newFixture(st settings.Settings) *fixture {
	return &fixture{
		settings: &fakeSettings{st: st},
		orders:   &fakeOrders{orders: map[int64]*repo.Order{1: testOrder()}},
		gateway:  &fakeGateway{},
		notices:  &fakeNotices{},
		guard:    &fakeGuard{},
	}
}

func (f *fixture) dispatcher(cfg Config) *Dispatcher {
	return New(f.settings, f.orders, f.gateway, f.notices, f.guard, nil, testLogger(), cfg)
}

func TestManualDisabledQueuesNoticeAndSkipsGateway(t *testing.T) {
	f := newFixture(settings.Settings{Enabled: false})
	d := f.dispatcher(Config{})

	d.HandleManualSend(context.Background(), events.Event{Type: events.ManualSendRequested, OrderID: 1})

	if f.gateway.calls != 0 {
		t.Fatalf("expected no gateway calls, got %d", f.gateway.calls)
	}
	if len(f.orders.notes) != 0 {
		t.Fatalf("expected no notes, got %v", f.orders.notes)
	}
	if len(f.notices.notices) != 1 {
		t.Fatalf("expected one admin notice, got %d", len(f.notices.notices))
	}
	if f.notices.notices[0].Type != notice.TypeError {
		t.Fatalf("expected error notice, got %q", f.notices.notices[0].Type)
	}
}

func TestAutomaticDisabledIsSilent(t *testing.T) {
	f := newFixture(settings.Settings{Enabled: false})
	d := f.dispatcher(Config{})

	d.HandleStatusChange(context.Background(), events.Event{
		Type:    events.OrderStatusChanged,
		OrderID: 1,
		Status:  "completed",
	})

	if f.gateway.calls != 0 {
		t.Fatalf("expected no gateway calls, got %d", f.gateway.calls)
	}
	if len(f.orders.notes) != 0 {
		t.Fatalf("expected no notes, got %v", f.orders.notes)
	}
	if len(f.notices.notices) != 0 {
		t.Fatalf("expected no notices on automatic path, got %d", len(f.notices.notices))
	}
}

func TestAutomaticIgnoresOtherStatusTransitions(t *testing.T) {
	f := newFixture(enabledSettings())
	d := f.dispatcher(Config{TriggerStatus: "completed"})

	d.HandleStatusChange(context.Background(), events.Event{
		Type:    events.OrderStatusChanged,
		OrderID: 1,
		Status:  "processing",
	})

	if f.gateway.calls != 0 {
		t.Fatalf("expected no gateway calls, got %d", f.gateway.calls)
	}
}

func TestEmptyBillingPhoneSkipsSilently(t *testing.T) {
	f := newFixture(enabledSettings())
	f.orders.orders[1].BillingPhone = ""
	d := f.dispatcher(Config{})

	d.HandleManualSend(context.Background(), events.Event{Type: events.ManualSendRequested, OrderID: 1})

	if f.gateway.calls != 0 {
		t.Fatalf("expected no gateway calls, got %d", f.gateway.calls)
	}
	if len(f.orders.notes) != 0 {
		t.Fatalf("expected no notes on eligibility skip, got %v", f.orders.notes)
	}
}

func TestEmptyBillingCountrySkipsSilently(t *testing.T) {
	f := newFixture(enabledSettings())
	f.orders.orders[1].BillingCountry = ""
	d := f.dispatcher(Config{})

	d.HandleManualSend(context.Background(), events.Event{Type: events.ManualSendRequested, OrderID: 1})

	if f.gateway.calls != 0 || len(f.orders.notes) != 0 {
		t.Fatalf("expected silent skip, calls=%d notes=%v", f.gateway.calls, f.orders.notes)
	}
}

func TestEndToEndSuccessWithDefaultTemplate(t *testing.T) {
	f := newFixture(enabledSettings())
	d := f.dispatcher(Config{})

	d.HandleManualSend(context.Background(), events.Event{Type: events.ManualSendRequested, OrderID: 1})

	if f.gateway.calls != 1 {
		t.Fatalf("expected one gateway call, got %d", f.gateway.calls)
	}
	if f.gateway.lastTo != "+15551234" {
		t.Fatalf("expected destination +15551234, got %q", f.gateway.lastTo)
	}
	want := "Your order#42 is completed. Thank you for shopping with us."
	if f.gateway.lastBody != want {
		t.Fatalf("expected body %q, got %q", want, f.gateway.lastBody)
	}
	if f.gateway.lastCreds.AccountSID != "AC123" || f.gateway.lastCreds.From != "+15550000" {
		t.Fatalf("unexpected credentials %+v", f.gateway.lastCreds)
	}

	if len(f.orders.notes) != 1 {
		t.Fatalf("expected exactly one note, got %d", len(f.orders.notes))
	}
	if !strings.Contains(f.orders.notes[0].note, "+15551234") {
		t.Fatalf("expected note to contain destination number, got %q", f.orders.notes[0].note)
	}
}

func TestCustomTemplatePlaceholders(t *testing.T) {
	st := enabledSettings()
	st.MessageTemplate = "Order {order_number}: {order_status}, {total_amount} on {order_date} ({unknown})"
	f := newFixture(st)
	d := f.dispatcher(Config{})

	d.HandleManualSend(context.Background(), events.Event{Type: events.ManualSendRequested, OrderID: 1})

	want := "Order 42: completed, 19.99 on 2024-01-02 03:04:05 ({unknown})"
	if f.gateway.lastBody != want {
		t.Fatalf("expected body %q, got %q", want, f.gateway.lastBody)
	}
}

func TestGatewayFailureRecordsErrorNote(t *testing.T) {
	f := newFixture(enabledSettings())
	f.gateway.err = &twilio.RejectedError{StatusCode: 400}
	d := f.dispatcher(Config{})

	d.HandleManualSend(context.Background(), events.Event{Type: events.ManualSendRequested, OrderID: 1})

	if len(f.orders.notes) != 1 {
		t.Fatalf("expected exactly one note, got %d", len(f.orders.notes))
	}
	note := f.orders.notes[0].note
	if !strings.Contains(note, "Failed to send SMS notification") {
		t.Fatalf("expected failure note, got %q", note)
	}
	if !strings.Contains(note, "400") {
		t.Fatalf("expected status code in note, got %q", note)
	}
}

func TestUnresolvableOrderFailsFastWithoutNote(t *testing.T) {
	f := newFixture(enabledSettings())
	d := f.dispatcher(Config{})

	d.HandleManualSend(context.Background(), events.Event{Type: events.ManualSendRequested, OrderID: 99})

	if f.gateway.calls != 0 {
		t.Fatalf("expected no gateway calls, got %d", f.gateway.calls)
	}
	if len(f.orders.notes) != 0 {
		t.Fatalf("expected no notes for missing order, got %v", f.orders.notes)
	}
}

func TestEventWithOrderObjectSkipsLookup(t *testing.T) {
	f := newFixture(enabledSettings())
	d := f.dispatcher(Config{})

	d.HandleStatusChange(context.Background(), events.Event{
		Type:   events.OrderStatusChanged,
		Order:  testOrder(),
		Status: "completed",
	})

	if f.orders.lookups != 0 {
		t.Fatalf("expected no repository lookups, got %d", f.orders.lookups)
	}
	if f.gateway.calls != 1 {
		t.Fatalf("expected one gateway call, got %d", f.gateway.calls)
	}
}

func TestDedupGuardSuppressesRepeatAutomaticSends(t *testing.T) {
	f := newFixture(enabledSettings())
	d := f.dispatcher(Config{DedupEnabled: true, DedupTTL: time.Hour})

	evt := events.Event{Type: events.OrderStatusChanged, OrderID: 1, Status: "completed"}
	d.HandleStatusChange(context.Background(), evt)
	d.HandleStatusChange(context.Background(), evt)

	if f.gateway.calls != 1 {
		t.Fatalf("expected duplicate automatic send suppressed, got %d calls", f.gateway.calls)
	}
	if len(f.orders.notes) != 1 {
		t.Fatalf("expected one note, got %d", len(f.orders.notes))
	}
}

func TestManualSendBypassesDedupGuard(t *testing.T) {
	f := newFixture(enabledSettings())
	d := f.dispatcher(Config{DedupEnabled: true, DedupTTL: time.Hour})

	d.HandleStatusChange(context.Background(), events.Event{Type: events.OrderStatusChanged, OrderID: 1, Status: "completed"})
	d.HandleManualSend(context.Background(), events.Event{Type: events.ManualSendRequested, OrderID: 1})

	if f.gateway.calls != 2 {
		t.Fatalf("expected manual send to bypass the guard, got %d calls", f.gateway.calls)
	}
}

func TestDuplicateSendsAllowedWhenGuardDisabled(t *testing.T) {
	f := newFixture(enabledSettings())
	d := f.dispatcher(Config{DedupEnabled: false})

	evt := events.Event{Type: events.OrderStatusChanged, OrderID: 1, Status: "completed"}
	d.HandleStatusChange(context.Background(), evt)
	d.HandleStatusChange(context.Background(), evt)

	if f.gateway.calls != 2 {
		t.Fatalf("expected at-least-once behavior without guard, got %d calls", f.gateway.calls)
	}
}

func TestSettingsLoadErrorAborts(t *testing.T) {
	f := newFixture(enabledSettings())
	f.settings.err = errors.New("store down")
	d := f.dispatcher(Config{})

	d.HandleManualSend(context.Background(), events.Event{Type: events.ManualSendRequested, OrderID: 1})

	if f.gateway.calls != 0 || len(f.orders.notes) != 0 {
		t.Fatalf("expected abort on settings error, calls=%d notes=%v", f.gateway.calls, f.orders.notes)
	}
}
