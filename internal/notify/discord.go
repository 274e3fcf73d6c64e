package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/brl-arbitrage-bot/internal/httpclient"
)

// DiscordSender posts to a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     httpclient.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) (*DiscordSender, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("discord"),
		httpclient.WithRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &DiscordSender{webhookURL: webhookURL, client: client}, nil
}

// Send renders the title in bold. Discord answers 204 on success.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", title, message),
	}

	if _, err := d.client.NewRequest().SetBody(payload).Post(ctx, d.webhookURL); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
