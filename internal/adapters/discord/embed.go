package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"collectorkit/internal/domain/entities"
)

const (
	embedColor = 0x5865F2
	embedTitle = "🔔 collectorkit"
	footerText = "collectorkit"

	// Discord rejects embeds above these sizes.
	maxTitleLen       = 256
	maxDescriptionLen = 4096
)

// BuildNotificationEmbed renders n as a single embed. The subject becomes the
// title; the body the description.
func BuildNotificationEmbed(n entities.Notification) *discordgo.MessageEmbed {
	title := n.Subject
	if title == "" {
		title = embedTitle
	}
	embed := &discordgo.MessageEmbed{
		Title:       truncate(title, maxTitleLen),
		Description: truncate(n.Body, maxDescriptionLen),
		Color:       embedColor,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	}
	if n.To != "" {
		embed.Fields = []*discordgo.MessageEmbedField{{Name: "To", Value: n.To, Inline: true}}
	}
	return embed
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
