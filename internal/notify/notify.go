// Package notify provides Notification Sinks for the sign-in flow.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/flow/service"
)

// LogNotifier writes notifications to a structured logger: successes at info, errors at warn.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier returns a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(l *slog.Logger) *LogNotifier {
	if l == nil {
		l = slog.Default()
	}
	return &LogNotifier{log: l.With("component", "notify")}
}

// Notify logs n.
func (n *LogNotifier) Notify(ctx context.Context, note domain.Notification) {
	attrs := []any{"kind", string(note.Kind), "stage", note.Stage.String(), "message", note.Message}
	if note.Err != nil {
		attrs = append(attrs, "error", note.Err)
	}
	if note.Kind == domain.NotifyError {
		n.log.WarnContext(ctx, "notification", attrs...)
		return
	}
	n.log.InfoContext(ctx, "notification", attrs...)
}

// WriterNotifier prints one line per notification, e.g. "✔ OTP sent to your mobile number".
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a notifier printing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify prints n. Write errors are ignored.
func (n *WriterNotifier) Notify(_ context.Context, note domain.Notification) {
	mark := "✔"
	if note.Kind == domain.NotifyError {
		mark = "✘"
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "%s %s\n", mark, note.Message)
}

// Multi delivers each notification to every non-nil notifier in order.
type Multi []service.Notifier

// Notify fans note out.
func (m Multi) Notify(ctx context.Context, note domain.Notification) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, note)
		}
	}
}

var (
	_ service.Notifier = (*LogNotifier)(nil)
	_ service.Notifier = (*WriterNotifier)(nil)
	_ service.Notifier = Multi(nil)
)
