// Package email delivers notifications over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"collectorkit/internal/config"
	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/ports/output"
	"collectorkit/pkg/secret"
	"collectorkit/pkg/textutil"
)

var _ output.Notifier = (*Notifier)(nil)

type Notifier struct {
	host     string
	addr     string
	from     string
	username string
	password string
	timeout  time.Duration
	now      func() time.Time
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewNotifier validates the SMTP settings. Authentication is used only when
// a username is set.
func NewNotifier(cfg config.SMTP, timeout time.Duration) (*Notifier, error) {
	if cfg.Host == "" {
		return nil, domain.Wrap("smtp", domain.ErrValidationFailed, errors.New("SMTP_HOST est requis"))
	}
	if !textutil.ValidateEmail(cfg.From) {
		return nil, domain.Wrap("smtp", domain.ErrValidationFailed, fmt.Errorf("SMTP_FROM %q invalide", cfg.From))
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	d := &net.Dialer{}
	return &Notifier{
		host:     cfg.Host,
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		from:     cfg.From,
		username: cfg.Username,
		password: cfg.Password,
		timeout:  timeout,
		now:      time.Now,
		dial:     d.DialContext,
	}, nil
}

func (n *Notifier) Notify(ctx context.Context, msg entities.Notification) error {
	if !textutil.ValidateEmail(msg.To) {
		return domain.Wrap(fmt.Sprintf("smtp: recipient %q", msg.To), domain.ErrValidationFailed, nil)
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	body, err := n.compose(msg)
	if err != nil {
		return err
	}

	conn, err := n.dial(ctx, "tcp", n.addr)
	if err != nil {
		return classify("smtp dial", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, err := smtp.NewClient(conn, n.host)
	if err != nil {
		conn.Close()
		return classify("smtp hello", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.host, MinVersion: tls.VersionTLS12}); err != nil {
			return classify("smtp starttls", err)
		}
	}
	if n.username != "" {
		if err := c.Auth(smtp.PlainAuth("", n.username, n.password, n.host)); err != nil {
			return classify("smtp auth", err)
		}
	}
	if err := c.Mail(n.from); err != nil {
		return classify("smtp mail from", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return classify("smtp rcpt to", err)
	}
	w, err := c.Data()
	if err != nil {
		return classify("smtp data", err)
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return classify("smtp data", err)
	}
	if err := w.Close(); err != nil {
		return classify("smtp data", err)
	}
	return c.Quit()
}

// compose renders msg as an RFC 5322 message with a quoted-printable UTF-8
// body.
func (n *Notifier) compose(msg entities.Notification) ([]byte, error) {
	id := secret.UniqueID("msg.")
	var b bytes.Buffer
	headers := []struct{ k, v string }{
		{"From", n.from},
		{"To", msg.To},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", n.now().Format(time.RFC1123Z)},
		{"Message-ID", "<" + id + "@" + n.host + ">"},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/plain; charset="utf-8"`},
		{"Content-Transfer-Encoding", "quoted-printable"},
	}
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h.k, h.v)
	}
	b.WriteString("\r\n")
	qp := quotedprintable.NewWriter(&b)
	if _, err := qp.Write([]byte(msg.Body)); err != nil {
		return nil, fmt.Errorf("smtp: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("smtp: encode body: %w", err)
	}
	return b.Bytes(), nil
}

func classify(op string, err error) error {
	var tp *textproto.Error
	if errors.As(err, &tp) {
		switch {
		case tp.Code == 530 || tp.Code == 534 || tp.Code == 535:
			return domain.Wrap(op, domain.ErrAccessDenied, err)
		case tp.Code >= 400 && tp.Code < 500:
			return domain.Wrap(op, domain.ErrTransient, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Wrap(op, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
