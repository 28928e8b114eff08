package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderKind indicates the order kind. Only limit orders are accepted today;
// the market and GTD kinds are reserved wire values.
type OrderKind string

const (
	OrderKindLimit  OrderKind = "limit"
	OrderKindMarket OrderKind = "market"
	OrderKindGTD    OrderKind = "GTD"
)

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusExpired         OrderStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// Order is the read-model projection of an on-ledger order record. Order IDs
// are unique and monotonic per market.
type Order struct {
	ID           uint64
	MarketID     uint64
	Owner        string
	Side         OrderSide
	OutcomeIndex uint8
	PriceTicks   uint64 // fixed-point: price * 1e6, open interval (0, 1e6)
	Amount       uint64 // requested amount, fixed-point units
	FilledAmount uint64
	Status       OrderStatus
	Kind         OrderKind
	ExpiresAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Unfilled returns the remaining unfilled amount.
func (o Order) Unfilled() uint64 {
	if o.FilledAmount >= o.Amount {
		return 0
	}
	return o.Amount - o.FilledAmount
}

// Price returns the exact decimal price represented by PriceTicks.
func (o Order) Price() decimal.Decimal {
	return decimal.New(int64(o.PriceTicks), -6)
}

// MarshalJSON adds the exact decimal price alongside the raw ticks so API
// consumers never reimplement the fixed-point scale.
func (o Order) MarshalJSON() ([]byte, error) {
	type alias Order
	return json.Marshal(struct {
		alias
		Price string `json:"Price"`
	}{alias(o), o.Price().String()})
}

// Escrow is the sub-balance pledged by an open sell order. Tokens held in
// escrow are inaccessible to the owner until the order is cancelled or
// matched.
type Escrow struct {
	MarketID     uint64
	OrderID      uint64
	Owner        string
	OutcomeIndex uint8
	Amount       uint64
	CreatedAt    time.Time
}

// Trade is the read-model record of a single executed match leg.
type Trade struct {
	ID           string // uuid
	MarketID     uint64
	OrderID      uint64
	Owner        string
	Side         OrderSide
	OutcomeIndex uint8
	PriceTicks   uint64
	Amount       uint64
	Kind         TradeKind
	ExecutedAt   time.Time
}

// Price returns the exact decimal execution price.
func (t Trade) Price() decimal.Decimal {
	return decimal.New(int64(t.PriceTicks), -6)
}

// MarshalJSON mirrors Order.MarshalJSON for trade records.
func (t Trade) MarshalJSON() ([]byte, error) {
	type alias Trade
	return json.Marshal(struct {
		alias
		Price string `json:"Price"`
	}{alias(t), t.Price().String()})
}

// TradeKind distinguishes how a fill was produced.
type TradeKind string

const (
	TradeKindMint  TradeKind = "mint"  // complementary buys combined into a mint
	TradeKindBurn  TradeKind = "burn"  // complementary sells combined into a burn
	TradeKindCross TradeKind = "cross" // direct buy/sell cross on one outcome
)
