package domain

import "time"

// EventType identifies the kind of engine event.
type EventType string

const (
	EventMarketCreated    EventType = "market.created"
	EventMarketActivated  EventType = "market.activated"
	EventMarketPaused     EventType = "market.paused"
	EventMarketResumed    EventType = "market.resumed"
	EventMarketCancelled  EventType = "market.cancelled"
	EventMarketFlagged    EventType = "market.flagged"
	EventMarketResolved   EventType = "market.resolved"
	EventSetsMinted       EventType = "sets.minted"
	EventSetsRedeemed     EventType = "sets.redeemed"
	EventOrderPlaced      EventType = "order.placed"
	EventOrderCancelled   EventType = "order.cancelled"
	EventTradeMatched     EventType = "trade.matched"
	EventResultProposed   EventType = "oracle.proposed"
	EventResultChallenged EventType = "oracle.challenged"
	EventDisputeResolved  EventType = "oracle.dispute_resolved"
	EventWinningsClaimed  EventType = "claim.paid"
)

// Event is a single engine event emitted after an instruction commits. The
// payload carries the read-model record(s) the instruction touched.
type Event struct {
	ID       string    `json:"id"` // uuid
	Type     EventType `json:"type"`
	MarketID uint64    `json:"market_id"`
	At       time.Time `json:"at"`

	Market   *Market         `json:"market,omitempty"`
	Orders   []Order         `json:"orders,omitempty"`
	Trades   []Trade         `json:"trades,omitempty"`
	Proposal *OracleProposal `json:"proposal,omitempty"`
	Position *Position       `json:"position,omitempty"`

	// Amount carries the headline quantity for mint/redeem/claim events.
	Amount uint64 `json:"amount,omitempty"`
	// Caller is the hex address that signed the instruction.
	Caller string `json:"caller,omitempty"`
}

// Channel returns the event-bus channel this event publishes on.
func (e Event) Channel() string {
	switch e.Type {
	case EventOrderPlaced, EventOrderCancelled:
		return "ch:order"
	case EventTradeMatched:
		return "ch:trade"
	case EventResultProposed, EventResultChallenged, EventDisputeResolved, EventMarketResolved:
		return "ch:oracle"
	case EventWinningsClaimed:
		return "ch:claim"
	default:
		return "ch:market"
	}
}
