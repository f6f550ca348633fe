package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTradeOrgSell(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)

	trade := TradeRecord{
		TradeID:      "01HV6ZKX9Q2W3E4R5T6Y7U8I9O",
		UserID:       42,
		InstrumentID: 3,
		Symbol:       "AAPL",
		Side:         broker.SideSell,
		Quantity:     10,
		Price:        110,
		Amount:       1100,
		CostBasis:    1000,
		RealizedPL:   100,
		Time:         ts,
	}

	result := FormatTradeOrg(trade)

	assert.Contains(t, result, "** SELL: AAPL x10 (01HV6ZKX)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: 01HV6ZKX9Q2W3E4R5T6Y7U8I9O")
	assert.Contains(t, result, ":USER_ID: 42")
	assert.Contains(t, result, ":PRICE: 110.00")
	assert.Contains(t, result, ":AMOUNT: 1100.00")
	assert.Contains(t, result, ":COST_BASIS: 1000.00")
	assert.Contains(t, result, ":REALIZED_PL: 100.00")
	assert.Contains(t, result, ":TIME: 2024-03-15T10:30:45Z")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Thesis")
	assert.Contains(t, result, "*** Review")
}

func TestFormatTradeOrgBuyOmitsRealizedPL(t *testing.T) {
	t.Parallel()

	trade := TradeRecord{
		TradeID:  "short",
		Symbol:   "KO",
		Side:     broker.SideBuy,
		Quantity: 5,
		Price:    60,
		Amount:   300,
		Time:     time.Now(),
	}

	result := FormatTradeOrg(trade)
	assert.Contains(t, result, "** BUY: KO x5 (short)")
	assert.NotContains(t, result, ":REALIZED_PL:")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	trades := []TradeRecord{
		{TradeID: "trade-001", Symbol: "AAPL", Side: broker.SideBuy, Quantity: 1, Time: time.Now()},
		{TradeID: "trade-002", Symbol: "MSFT", Side: broker.SideSell, Quantity: 2, Time: time.Now()},
	}

	result := FormatTradesOrg(trades)

	assert.Contains(t, result, "AAPL")
	assert.Contains(t, result, "MSFT")
	parts := strings.Split(result, "\n\n\n")
	assert.Len(t, parts, 2, "Expected two trades separated by blank lines")
}

func TestFormatTradesOrgEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FormatTradesOrg(nil))
}

func TestFormatTradeOrgStructure(t *testing.T) {
	t.Parallel()

	result := FormatTradeOrg(TradeRecord{TradeID: "structure-test", Symbol: "NVDA", Side: broker.SideBuy, Quantity: 1, Time: time.Now()})

	lines := strings.Split(result, "\n")
	require.Greater(t, len(lines), 10)
	assert.True(t, strings.HasPrefix(lines[0], "** BUY:"))

	propertiesEnd := -1
	for i, line := range lines {
		if line == ":END:" {
			propertiesEnd = i
			break
		}
	}
	thesisIdx := -1
	reviewIdx := -1
	for i, line := range lines {
		if strings.Contains(line, "*** Thesis") {
			thesisIdx = i
		}
		if strings.Contains(line, "*** Review") {
			reviewIdx = i
		}
	}

	assert.Greater(t, thesisIdx, propertiesEnd, "Thesis section should come after properties")
	assert.Greater(t, reviewIdx, thesisIdx, "Review should come after Thesis")
}

func TestShortID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"long ID gets truncated", "trade-12345678-abcdef", "trade-12"},
		{"exactly 8 characters", "12345678", "12345678"},
		{"less than 8 characters", "short", "short"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shortID(tt.input))
		})
	}
}
