package notification

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogPushSender writes push notifications to the log instead of a real
// provider. Used until a device-token provider is wired in.
type LogPushSender struct {
	logger zerolog.Logger
}

func NewLogPushSender(logger zerolog.Logger) *LogPushSender {
	return &LogPushSender{logger: logger}
}

func (s *LogPushSender) SendPush(_ context.Context, to, title, body string) error {
	s.logger.Info().
		Str("to", to).
		Str("title", title).
		Str("body", body).
		Msg("push notification")
	return nil
}

// LogEmailSender writes emails to the log instead of a real provider.
type LogEmailSender struct {
	logger zerolog.Logger
}

func NewLogEmailSender(logger zerolog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("email notification")
	return nil
}

// PushCall records one SendPush invocation for assertions in tests.
type PushCall struct {
	To    string
	Title string
	Body  string
}

// MockPushSender records calls and optionally fails with Err.
type MockPushSender struct {
	mu    sync.Mutex
	calls []PushCall
	Err   error
}

func (m *MockPushSender) SendPush(_ context.Context, to, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, PushCall{To: to, Title: title, Body: body})
	return m.Err
}

func (m *MockPushSender) Calls() []PushCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PushCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// EmailCall records one SendEmail invocation for assertions in tests.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender records calls and optionally fails with Err.
type MockEmailSender struct {
	mu    sync.Mutex
	calls []EmailCall
	Err   error
}

func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	return m.Err
}

func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
