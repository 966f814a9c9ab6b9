package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/ports/output"
)

var _ output.Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier posts notifications as embeds on a Discord webhook.
type WebhookNotifier struct {
	session *discordgo.Session
	id      string
	token   string
}

// NewWebhookNotifier builds a notifier for a webhook URL of the form
// https://discord.com/api/webhooks/<id>/<token>.
func NewWebhookNotifier(webhookURL string) (*WebhookNotifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	// Webhook execution authenticates with the token in the URL.
	s, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	return &WebhookNotifier{session: s, id: id, token: token}, nil
}

func (n *WebhookNotifier) Notify(ctx context.Context, msg entities.Notification) error {
	params := &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{BuildNotificationEmbed(msg)},
	}
	if _, err := n.session.WebhookExecute(n.id, n.token, true, params, discordgo.WithContext(ctx)); err != nil {
		return classify("discord webhook", err)
	}
	return nil
}

func parseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", "", domain.Wrap("discord webhook url", domain.ErrValidationFailed, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", domain.Wrap("discord webhook url", domain.ErrValidationFailed, fmt.Errorf("no webhook id/token in %q", u.Path))
}

func classify(op string, err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch code := rest.Response.StatusCode; {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return domain.Wrap(op, domain.ErrAccessDenied, err)
		case code == http.StatusNotFound:
			return domain.Wrap(op, domain.ErrNotFound, err)
		case code == http.StatusTooManyRequests || code >= 500:
			return domain.Wrap(op, domain.ErrTransient, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Wrap(op, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
