package nats

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subject  string
	data     []byte
	pubErr   error
	flushErr error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return f.pubErr
}

func (f *fakeConn) FlushWithContext(context.Context) error { return f.flushErr }

func TestSendRemindersPublishes(t *testing.T) {
	conn := &fakeConn{}
	n := New(conn, "deptdocs.reminders.send", slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, n.SendReminders(context.Background()))
	assert.Equal(t, "deptdocs.reminders.send", conn.subject)

	var req ReminderRequest
	require.NoError(t, json.Unmarshal(conn.data, &req))
	assert.Equal(t, "deptdocs", req.Source)
	assert.True(t, req.RequestedAt.Equal(n.now()))
}

func TestSendRemindersFailures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	boom := errors.New("boom")

	assert.ErrorIs(t, New(&fakeConn{pubErr: boom}, "s", logger).SendReminders(context.Background()), boom)
	assert.ErrorIs(t, New(&fakeConn{flushErr: boom}, "s", logger).SendReminders(context.Background()), boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	conn := &fakeConn{}
	assert.ErrorIs(t, New(conn, "s", logger).SendReminders(ctx), context.Canceled)
	assert.Nil(t, conn.data)
}
