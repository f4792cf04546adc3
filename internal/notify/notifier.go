// Package notify delivers operator notifications over one or more channels
// (Discord webhook, Telegram bot). Events can be filtered so operators only
// receive the alert classes they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skyquery/skyquery/internal/domain"
)

// Event types understood by the filter.
const (
	EventCycle      = "cycle"
	EventCandidates = "candidates"
	EventError      = "error"
)

// Sender is one notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel ("discord", "telegram").
	Name() string
}

// Notifier dispatches notifications to its senders, filtered by event type.
// An empty event list allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// CycleReport sends the end-of-cycle summaries: one Information message with
// the success lines and, when present, one Error message with the failures.
func (n *Notifier) CycleReport(ctx context.Context, ok, errs []string) {
	if len(ok) > 0 && n.allowed(EventCycle) {
		if err := n.dispatch(ctx, "Information", strings.Join(ok, "\n")); err != nil {
			n.logger.Warn("cycle report delivery failed", slog.String("error", err.Error()))
		}
	}
	if len(errs) > 0 && n.allowed(EventError) {
		if err := n.dispatch(ctx, "Error", strings.Join(errs, "\n")); err != nil {
			n.logger.Warn("cycle error report delivery failed", slog.String("error", err.Error()))
		}
	}
}

// CandidateAlert announces the most profitable under-ask candidates of a
// cycle, capped at ten lines.
func (n *Notifier) CandidateAlert(ctx context.Context, candidates []domain.ArbitrageCandidate) {
	if len(candidates) == 0 || !n.allowed(EventCandidates) {
		return
	}

	var b strings.Builder
	limit := len(candidates)
	if limit > 10 {
		limit = 10
	}
	for _, c := range candidates[:limit] {
		fmt.Fprintf(&b, "%s: ask %d, reference %d, profit %d\n",
			c.ItemName, c.StartingBid, c.PastPrice, c.Profit)
	}
	if err := n.dispatch(ctx, fmt.Sprintf("%d underpriced listings", len(candidates)), b.String()); err != nil {
		n.logger.Warn("candidate alert delivery failed", slog.String("error", err.Error()))
	}
}

func (n *Notifier) allowed(event string) bool {
	return len(n.events) == 0 || n.events[event]
}

// dispatch fans the message out to every sender. One channel failing never
// blocks the others; failures are collected into the returned error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.Debug("notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
