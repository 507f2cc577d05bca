package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/karthikrv/districtwatch/app/notifier"
)

// Poller drains the bot's update feed and feeds commands to the handler.
// It runs until its context is cancelled.
type Poller struct {
	client   *notifier.Client
	handler  *Handler
	interval time.Duration
	offset   int64
}

func NewPoller(client *notifier.Client, handler *Handler, interval time.Duration) *Poller {
	return &Poller{
		client:   client,
		handler:  handler,
		interval: interval,
	}
}

func (p *Poller) Run(ctx context.Context) {
	if !p.client.Enabled() {
		slog.Info("Telegram not configured, command polling disabled")
		return
	}

	slog.Info("Command poller started", "interval", p.interval.String())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Command poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	updates, err := p.client.GetUpdates(ctx, p.offset, 0)
	if err != nil {
		slog.Warn("Failed to poll command updates", "error", err)
		return
	}

	for _, update := range updates {
		if update.UpdateID >= p.offset {
			p.offset = update.UpdateID + 1
		}
		p.handler.HandleUpdate(ctx, update)
	}
}
