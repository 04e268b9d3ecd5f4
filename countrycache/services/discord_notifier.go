package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"

	"github.com/countrycache/countrycache/internal/domain/refresh"
)

const (
	colorSuccess = 0x57F287
	colorWarning = 0xFEE75C
)

// DiscordNotifier posts a short embed to a Discord webhook after each refresh.
type DiscordNotifier struct {
	client webhook.Client
}

func NewDiscordNotifier(webhookURL string) (*DiscordNotifier, error) {
	client, err := webhook.NewWithURL(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid discord webhook url: %w", err)
	}
	return &DiscordNotifier{client: client}, nil
}

func (n *DiscordNotifier) RefreshCompleted(ctx context.Context, result refresh.Result) error {
	_, err := n.client.CreateEmbeds([]discord.Embed{RefreshEmbed(result)}, rest.WithCtx(ctx))
	return err
}

func (n *DiscordNotifier) Close(ctx context.Context) {
	n.client.Close(ctx)
}

// RefreshEmbed renders result as a Discord embed.
func RefreshEmbed(result refresh.Result) discord.Embed {
	color := colorSuccess
	if len(result.Warnings) > 0 {
		color = colorWarning
	}

	b := discord.NewEmbedBuilder().
		SetTitle("Country data refreshed").
		SetDescription(fmt.Sprintf("Run `%s` finished in %s", result.RunID, result.Took.Round(time.Millisecond))).
		AddField("Countries", strconv.Itoa(result.Records), true).
		AddField("Inserted", strconv.Itoa(result.Stats.Inserted), true).
		AddField("Updated", strconv.Itoa(result.Stats.Updated), true).
		AddField("Removed", strconv.Itoa(result.Stats.Deleted), true).
		SetColor(color).
		SetTimestamp(result.RefreshedAt)

	for _, w := range result.Warnings {
		b.AddField("Warning", w, false)
	}
	return b.Build()
}
