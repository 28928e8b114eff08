package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/notify"
)

// alertChannels are the channels the alert bridge watches. Order flow and
// claims are too chatty for operator notifications; lifecycle and oracle
// events are where humans need to react.
var alertChannels = []string{
	"ch:market",
	"ch:oracle",
}

// Alerts bridges engine events to the operator notifier. The notifier's own
// event filter decides which types are actually delivered.
type Alerts struct {
	bus      domain.EventBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewAlerts creates an Alerts bridge.
func NewAlerts(bus domain.EventBus, notifier *notify.Notifier, logger *slog.Logger) *Alerts {
	return &Alerts{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "alerts")),
	}
}

// Run consumes events and forwards them as notifications until the context
// is cancelled.
func (a *Alerts) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, channel := range alertChannels {
		msgCh, err := a.bus.Subscribe(ctx, channel)
		if err != nil {
			return err
		}
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case payload, ok := <-msgCh:
					if !ok {
						return nil
					}
					a.forward(ctx, payload)
				}
			}
		})
	}
	return g.Wait()
}

func (a *Alerts) forward(ctx context.Context, payload []byte) {
	var ev domain.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return
	}

	title, message := formatAlert(ev)
	if err := a.notifier.Notify(ctx, string(ev.Type), title, message); err != nil {
		a.logger.WarnContext(ctx, "alert delivery failed",
			slog.String("type", string(ev.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// formatAlert renders a short human-readable notification for an event.
func formatAlert(ev domain.Event) (title, message string) {
	switch ev.Type {
	case domain.EventMarketResolved:
		result := "invalid"
		if ev.Market != nil && ev.Market.FinalResult != nil && !ev.Market.FinalResult.Invalid() {
			result = fmt.Sprintf("outcome %d", ev.Market.FinalResult.Outcome)
		}
		return fmt.Sprintf("Market %d resolved", ev.MarketID),
			fmt.Sprintf("Final result: %s", result)

	case domain.EventResultChallenged:
		msg := "A result proposal was challenged and needs manual dispute resolution."
		if ev.Proposal != nil {
			msg = fmt.Sprintf("Proposal by %s challenged by %s. Resolve the dispute before payouts can start.",
				ev.Proposal.Proposer, ev.Proposal.Challenger)
		}
		return fmt.Sprintf("Market %d result challenged", ev.MarketID), msg

	case domain.EventDisputeResolved:
		return fmt.Sprintf("Market %d dispute resolved", ev.MarketID),
			"The oracle admin ruled on the disputed result; settlement can proceed."

	case domain.EventMarketCancelled:
		return fmt.Sprintf("Market %d cancelled", ev.MarketID),
			"Complete sets are refundable at par."

	default:
		return fmt.Sprintf("Market %d: %s", ev.MarketID, ev.Type), ""
	}
}
