package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openpredict/settler/internal/domain"
)

func TestFormatAlertResolved(t *testing.T) {
	win := domain.Result{Outcome: 2}
	title, msg := formatAlert(domain.Event{
		Type:     domain.EventMarketResolved,
		MarketID: 12,
		Market:   &domain.Market{ID: 12, FinalResult: &win},
	})
	assert.Equal(t, "Market 12 resolved", title)
	assert.Contains(t, msg, "outcome 2")
}

func TestFormatAlertResolvedInvalid(t *testing.T) {
	inv := domain.Result{Outcome: domain.ResultInvalid}
	_, msg := formatAlert(domain.Event{
		Type:     domain.EventMarketResolved,
		MarketID: 12,
		Market:   &domain.Market{ID: 12, FinalResult: &inv},
	})
	assert.Contains(t, msg, "invalid")
}

func TestFormatAlertChallenged(t *testing.T) {
	title, msg := formatAlert(domain.Event{
		Type:     domain.EventResultChallenged,
		MarketID: 3,
		Proposal: &domain.OracleProposal{
			Proposer:   "0xaaaa",
			Challenger: "0xbbbb",
		},
	})
	assert.Equal(t, "Market 3 result challenged", title)
	assert.Contains(t, msg, "0xaaaa")
	assert.Contains(t, msg, "0xbbbb")
}

func TestFormatAlertDefault(t *testing.T) {
	title, msg := formatAlert(domain.Event{
		Type:     domain.EventSetsMinted,
		MarketID: 8,
	})
	assert.Equal(t, "Market 8: sets.minted", title)
	assert.Empty(t, msg)
}
