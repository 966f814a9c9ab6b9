package email

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collectorkit/internal/config"
	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
)

// fakeServer speaks just enough SMTP over a pipe to accept one message.
func fakeServer(t *testing.T, conn net.Conn, received chan<- string) {
	t.Helper()
	defer conn.Close()
	r := textproto.NewReader(bufio.NewReader(conn))
	w := textproto.NewWriter(bufio.NewWriter(conn))
	reply := func(s string) { _ = w.PrintfLine("%s", s) }

	reply("220 mail.example.com ESMTP")
	for {
		line, err := r.ReadLine()
		if err != nil {
			return
		}
		switch {
		case strings.HasPrefix(line, "EHLO"):
			reply("250 mail.example.com")
		case strings.HasPrefix(line, "MAIL FROM"), strings.HasPrefix(line, "RCPT TO"):
			reply("250 OK")
		case line == "DATA":
			reply("354 go ahead")
			data, err := r.ReadDotBytes()
			if err != nil {
				return
			}
			received <- string(data)
			reply("250 queued")
		case line == "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 unsupported")
		}
	}
}

func newTestNotifier(t *testing.T) (*Notifier, chan string) {
	t.Helper()
	n, err := NewNotifier(config.SMTP{Host: "mail.example.com", Port: 2525, From: "noreply@example.com"}, 5*time.Second)
	require.NoError(t, err)
	n.now = func() time.Time { return time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC) }

	received := make(chan string, 1)
	n.dial = func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		go fakeServer(t, server, received)
		return client, nil
	}
	return n, received
}

func TestNotifierSends(t *testing.T) {
	n, received := newTestNotifier(t)

	err := n.Notify(context.Background(), entities.Notification{
		To:      "ops@example.com",
		Subject: "Appareil désactivé",
		Body:    "Le compteur 42 est hors ligne.",
	})
	require.NoError(t, err)

	msg := <-received
	assert.Contains(t, msg, "From: noreply@example.com\n")
	assert.Contains(t, msg, "To: ops@example.com\n")
	assert.Contains(t, msg, "Subject: =?utf-8?q?Appareil_d=C3=A9sactiv=C3=A9?=")
	assert.Contains(t, msg, "Date: Thu, 01 Feb 2024 10:00:00 +0000")
	assert.Contains(t, msg, "Message-ID: <msg.")
	assert.Contains(t, msg, "Le compteur 42 est hors ligne.")
}

func TestNotifierRejectsBadRecipient(t *testing.T) {
	n, _ := newTestNotifier(t)
	dialed := false
	n.dial = func(context.Context, string, string) (net.Conn, error) {
		dialed = true
		return nil, io.EOF
	}
	err := n.Notify(context.Background(), entities.Notification{To: "nobody"})
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.False(t, dialed)
}

func TestNewNotifierValidates(t *testing.T) {
	_, err := NewNotifier(config.SMTP{From: "a@example.com"}, 0)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	_, err = NewNotifier(config.SMTP{Host: "h", From: "nope"}, 0)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	n, err := NewNotifier(config.SMTP{Host: "h", From: "a@example.com"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "h:587", n.addr)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("op", &textproto.Error{Code: 535, Msg: "bad credentials"}), domain.ErrAccessDenied)
	assert.ErrorIs(t, classify("op", &textproto.Error{Code: 421, Msg: "try later"}), domain.ErrTransient)
	assert.Empty(t, domain.Code(classify("op", &textproto.Error{Code: 550, Msg: "no such user"})))
	assert.ErrorIs(t, classify("op", &net.OpError{Op: "dial", Err: io.EOF}), domain.ErrTransient)
}
