// Package view is the headless presentation adapter. Renders are
// logged and notifications are kept in a bounded buffer so the HTTP
// surface can expose them to the terminal frontend.
package view

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
)

var _ port.Viewer = (*View)(nil)

const defaultNotificationCap = 100

type Notification struct {
	ID       string        `json:"id"`
	Message  string        `json:"message"`
	Severity port.Severity `json:"severity"`
	At       time.Time     `json:"at"`
}

type Config struct {
	NotificationCap int
	AutoConfirm     bool
}

func (c *Config) normalize() {
	if c.NotificationCap <= 0 {
		c.NotificationCap = defaultNotificationCap
	}
}

type View struct {
	mu            sync.Mutex
	cfg           Config
	notifications []Notification
}

func New(cfg Config) *View {
	cfg.normalize()
	return &View{cfg: cfg}
}

func (v *View) RenderProductGrid(ps []domain.Product) {
	const op = "View.RenderProductGrid"
	slog.With("op", op).Debug("rendered product grid", "products", len(ps))
}

func (v *View) RenderCartPanel(
	es []domain.CartEntry, t domain.CartTotals,
) {
	const op = "View.RenderCartPanel"
	slog.With("op", op).Debug(
		"rendered cart panel",
		"entries", len(es), "subtotal", t.Subtotal.String(),
	)
}

func (v *View) Notify(message string, severity port.Severity) {
	const op = "View.Notify"
	log := slog.With("op", op)

	switch severity {
	case port.SeverityError:
		log.Error(message)
	case port.SeverityWarn:
		log.Warn(message)
	default:
		log.Info(message)
	}

	n := Notification{
		ID:       uuid.NewString(),
		Message:  message,
		Severity: severity,
		At:       time.Now(),
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.notifications = append(v.notifications, n)
	if len(v.notifications) > v.cfg.NotificationCap {
		v.notifications = v.notifications[1:]
	}
}

func (v *View) Confirm(prompt string) bool {
	const op = "View.Confirm"
	slog.With("op", op).Info(
		"confirm requested", "prompt", prompt, "answer", v.cfg.AutoConfirm,
	)
	return v.cfg.AutoConfirm
}

// Notifications returns buffered notifications newest last.
func (v *View) Notifications() []Notification {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Notification(nil), v.notifications...)
}
