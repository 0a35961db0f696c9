package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/polymates/engine/internal/store"
)

// FeedView displays the aggregated trade feed as a table.
type FeedView struct {
	table  *tview.Table
	trades []store.Trade

	// nickname maps an address to its display label, "" when unset.
	nickname func(address string) string
	// favorite reports whether a market is starred.
	favorite func(marketID string) bool
	// hideWallets masks full addresses when the privacy setting is on.
	hideWallets bool
}

var feedHeaders = []string{"Time", "Market", "Outcome", "Side", "Price", "Size", "Wallet"}

// NewFeedView creates the feed table.
func NewFeedView(nickname func(string) string, favorite func(string) bool) *FeedView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)

	table.SetTitle(" Feed ").SetBorder(true)

	v := &FeedView{
		table:    table,
		nickname: nickname,
		favorite: favorite,
	}
	v.renderHeader()
	return v
}

// Widget returns the tview primitive.
func (v *FeedView) Widget() tview.Primitive {
	return v.table
}

// SetHideWallets toggles address masking.
func (v *FeedView) SetHideWallets(hide bool) {
	v.hideWallets = hide
	v.redraw()
}

// SetTrades replaces the displayed feed.
func (v *FeedView) SetTrades(trades []store.Trade) {
	v.trades = trades
	v.redraw()
}

// SelectedMarketID returns the market of the highlighted row, or "".
func (v *FeedView) SelectedMarketID() string {
	row, _ := v.table.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(v.trades) {
		return ""
	}
	return v.trades[idx].MarketID
}

// Refresh redraws the table in place.
func (v *FeedView) Refresh() {
	v.redraw()
}

func (v *FeedView) renderHeader() {
	for col, header := range feedHeaders {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}
}

func (v *FeedView) redraw() {
	v.table.Clear()
	v.renderHeader()

	for i, trade := range v.trades {
		row := i + 1

		title := trade.MarketTitle
		if v.favorite != nil && v.favorite(trade.MarketID) {
			title = "★ " + title
		}
		if len(title) > 36 {
			title = title[:33] + "..."
		}

		side := trade.Side
		sideColor := "white"
		switch trade.Side {
		case store.SideBuy:
			sideColor = "green"
		case store.SideSell:
			sideColor = "red"
		}

		cells := []string{
			trade.Timestamp.Format("Jan 02 15:04"),
			title,
			trade.Outcome,
			fmt.Sprintf("[%s]%s[-]", sideColor, side),
			fmt.Sprintf("%.3f", trade.Price),
			fmt.Sprintf("%.2f", trade.Size),
			v.walletLabel(trade.User),
		}

		for col, text := range cells {
			v.table.SetCell(row, col, tview.NewTableCell(text).SetAlign(tview.AlignLeft))
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Feed (%d) ", len(v.trades)))
}

// walletLabel picks the nickname when set, otherwise the address,
// truncated or masked per the privacy setting.
func (v *FeedView) walletLabel(address string) string {
	if v.nickname != nil {
		if nick := v.nickname(address); nick != "" {
			return nick
		}
	}
	if v.hideWallets {
		return "•••"
	}
	return truncateAddress(address)
}

// truncateAddress shortens an address for display.
func truncateAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
