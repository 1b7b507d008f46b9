package logging

import (
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/todo-service/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

const mailSubject = "Todoism application error"

// mailQueueSize bounds the mails waiting for the sender. Entries arriving
// while it is full are dropped.
const mailQueueSize = 16

// MailHook mails error level entries to the administrator. A single
// background sender drains a bounded queue; Close flushes it.
type MailHook struct {
	from  string
	to    []string
	send  func(e *email.Email) error
	out   *logrus.Logger
	queue chan *email.Email
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewMailHook creates a hook sending through the configured SMTP server.
// fallback receives delivery failures and must not carry the hook itself.
func NewMailHook(cfg *config.Config, fallback *logrus.Logger) *MailHook {
	addr := fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort)
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	from := cfg.SenderEmail
	if from == "" {
		from = cfg.SMTPUsername
	}
	send := func(e *email.Email) error { return e.Send(addr, auth) }
	return newMailHook(from, []string{cfg.AdminEmail}, send, fallback, mailQueueSize)
}

func newMailHook(from string, to []string, send func(e *email.Email) error, fallback *logrus.Logger, size int) *MailHook {
	h := &MailHook{
		from:  from,
		to:    to,
		send:  send,
		out:   fallback,
		queue: make(chan *email.Email, size),
		done:  make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *MailHook) run() {
	defer close(h.done)
	for e := range h.queue {
		if err := h.send(e); err != nil && h.out != nil {
			h.out.Warnf("Failed to send error mail to %s: %v", strings.Join(h.to, ","), err)
		}
	}
}

// Levels implements logrus.Hook.
func (h *MailHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel}
}

// Fire implements logrus.Hook. It never blocks on the mail server.
func (h *MailHook) Fire(entry *logrus.Entry) error {
	e := email.NewEmail()
	e.From = h.from
	e.To = h.to
	e.Subject = mailSubject
	e.Text = []byte(formatEntry(entry))

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil
	}
	select {
	case h.queue <- e:
	default:
		if h.out != nil {
			h.out.WithField("queue_size", cap(h.queue)).Warn("Error mail queue full, dropping mail")
		}
	}
	return nil
}

// Close stops accepting entries and waits until the queued mails have been
// handed to the server. Later calls return immediately.
func (h *MailHook) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.queue)
	}
	h.mu.Unlock()
	<-h.done
}

func formatEntry(entry *logrus.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s - %s\n", entry.Time.Format(time.RFC3339), strings.ToUpper(entry.Level.String()), entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, entry.Data[k])
	}
	return b.String()
}
