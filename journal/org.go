package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block. Structured facts
// live in a PROPERTIES drawer, followed by empty Thesis/Review sections.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s -> %s (%s)\n", t.SellSymbol, t.BuySymbol, shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":TIME: %s\n", t.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":SELL: %s %s\n", t.SellQuantity, t.SellSymbol)
	fmt.Fprintf(&b, ":BUY: %s %s\n", t.BuyQuantity, t.BuySymbol)
	fmt.Fprintf(&b, ":VALUE: %s %s\n", t.Value, t.ValueSymbol)
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// FormatClosedOrg renders a ClosedRecord as an Org-mode block.
func FormatClosedOrg(c ClosedRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Closed: %s %s (%s -> %s)\n", c.Quantity, c.Symbol, shortID(c.OpenTradeID), shortID(c.CloseTradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":OPEN_TRADE_ID: %s\n", c.OpenTradeID)
	fmt.Fprintf(&b, ":CLOSE_TRADE_ID: %s\n", c.CloseTradeID)
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", c.OpenTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", c.CloseTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":HOLDING: %s\n", c.CloseTime.Sub(c.OpenTime))
	fmt.Fprintf(&b, ":COST: %s %s\n", c.Cost, c.ValueSymbol)
	fmt.Fprintf(&b, ":PROCEEDS: %s %s\n", c.Proceeds, c.ValueSymbol)
	fmt.Fprintf(&b, ":REALIZED_PL: %s %s\n", c.RealizedPL, c.ValueSymbol)
	b.WriteString(":END:\n")
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
