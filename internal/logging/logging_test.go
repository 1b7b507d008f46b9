package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Dan9191/todo-service/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("warn", &buf)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("dropped")
	logger.WithField("user_id", 7).Warn("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.EqualValues(t, 7, line["user_id"])

	assert.Equal(t, logrus.InfoLevel, NewWithOutput("nonsense", &buf).GetLevel())
}

type mailbox struct {
	mu   sync.Mutex
	sent []*email.Email
	err  error
}

func (m *mailbox) send(e *email.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return m.err
}

func TestMailHook_SendsErrorsOnly(t *testing.T) {
	cfg := &config.Config{SMTPHost: "smtp.example.com", SMTPPort: "587", SMTPUsername: "bot@example.com", AdminEmail: "admin@example.com"}
	fallback, _ := test.NewNullLogger()
	configured := NewMailHook(cfg, fallback)
	configured.Close()
	box := &mailbox{}
	hook := newMailHook(configured.from, configured.to, box.send, fallback, mailQueueSize)

	logger, _ := test.NewNullLogger()
	logger.AddHook(hook)
	logger.Info("fine")
	logger.WithField("request_id", "abc").Error("database unavailable")
	hook.Close()

	require.Len(t, box.sent, 1)
	mail := box.sent[0]
	assert.Equal(t, "bot@example.com", mail.From)
	assert.Equal(t, []string{"admin@example.com"}, mail.To)
	assert.Equal(t, mailSubject, mail.Subject)
	assert.Contains(t, string(mail.Text), "ERROR - database unavailable")
	assert.Contains(t, string(mail.Text), "request_id: abc")
}

func TestMailHook_DeliveryFailureGoesToFallback(t *testing.T) {
	fallback, fallbackHook := test.NewNullLogger()
	box := &mailbox{err: errors.New("connection refused")}
	hook := newMailHook("noreply@example.com", []string{"admin@example.com"}, box.send, fallback, mailQueueSize)

	logger, _ := test.NewNullLogger()
	logger.AddHook(hook)
	logger.Error("boom")
	hook.Close()

	require.Len(t, fallbackHook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, fallbackHook.LastEntry().Level)
	assert.Contains(t, fallbackHook.LastEntry().Message, "connection refused")
}

func TestMailHook_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	fallback, fallbackHook := test.NewNullLogger()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	box := &mailbox{}
	slowSend := func(e *email.Email) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return box.send(e)
	}
	hook := newMailHook("noreply@example.com", []string{"admin@example.com"}, slowSend, fallback, 1)

	logger, _ := test.NewNullLogger()
	logger.AddHook(hook)
	logger.Error("first")
	<-started // the sender holds "first"
	logger.Error("second")
	logger.Error("third")

	require.Len(t, fallbackHook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, fallbackHook.LastEntry().Level)
	assert.Equal(t, "Error mail queue full, dropping mail", fallbackHook.LastEntry().Message)

	close(release)
	hook.Close()
	require.Len(t, box.sent, 2)
	assert.Contains(t, string(box.sent[0].Text), "first")
	assert.Contains(t, string(box.sent[1].Text), "second")

	logger.Error("after close")
	hook.Close()
	assert.Len(t, box.sent, 2)
}
