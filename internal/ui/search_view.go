package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/polymates/engine/internal/store"
)

// SearchView shows market search results.
type SearchView struct {
	table   *tview.Table
	results []store.MarketSummary

	favorite func(marketID string) bool
}

var searchHeaders = []string{"Market", "Category", "Liquidity"}

// NewSearchView creates the search results table.
func NewSearchView(favorite func(string) bool) *SearchView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0).
		SetSelectable(true, false)

	table.SetTitle(" Search ").SetBorder(true)

	v := &SearchView{table: table, favorite: favorite}
	v.renderHeader()
	return v
}

// Widget returns the tview primitive.
func (v *SearchView) Widget() tview.Primitive {
	return v.table
}

// SetResults replaces the displayed search results.
func (v *SearchView) SetResults(results []store.MarketSummary) {
	v.results = results
	v.table.Clear()
	v.renderHeader()

	for i, m := range v.results {
		row := i + 1

		title := m.Title
		if v.favorite != nil && v.favorite(m.ID) {
			title = "★ " + title
		}
		if len(title) > 48 {
			title = title[:45] + "..."
		}

		liquidity := "-"
		if m.Liquidity > 0 {
			liquidity = fmt.Sprintf("%.0f", m.Liquidity)
		}

		cells := []string{title, m.Category, liquidity}
		for col, text := range cells {
			v.table.SetCell(row, col, tview.NewTableCell(text).SetAlign(tview.AlignLeft))
		}
	}

	v.table.SetTitle(fmt.Sprintf(" Search (%d) ", len(v.results)))
}

// SelectedMarketID returns the market of the highlighted row, or "".
func (v *SearchView) SelectedMarketID() string {
	row, _ := v.table.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(v.results) {
		return ""
	}
	return v.results[idx].ID
}

func (v *SearchView) renderHeader() {
	for col, header := range searchHeaders {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}
}
