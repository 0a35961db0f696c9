package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/polymates/engine/internal/metrics"
)

// StatsView renders runtime counters from the metrics tracker.
type StatsView struct {
	text *tview.TextView
}

// NewStatsView creates the stats panel.
func NewStatsView() *StatsView {
	text := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)

	text.SetTitle(" Stats ").SetBorder(true)

	return &StatsView{text: text}
}

// Widget returns the tview primitive.
func (v *StatsView) Widget() tview.Primitive {
	return v.text
}

// Update redraws the panel from a metrics snapshot.
func (v *StatsView) Update(snap metrics.Snapshot) {
	var b strings.Builder

	fmt.Fprintf(&b, "[yellow]Uptime:[-]       %s\n", formatDuration(snap.Uptime))
	fmt.Fprintf(&b, "[yellow]Refreshes:[-]    %d\n", snap.Refreshes)
	fmt.Fprintf(&b, "[yellow]Cache hits:[-]   %d\n", snap.CacheHits)
	fmt.Fprintf(&b, "[yellow]Trades:[-]       %d\n", snap.TradesFetched)
	fmt.Fprintf(&b, "[yellow]Enrichments:[-]  %d\n", snap.Enrichments)
	fmt.Fprintf(&b, "[yellow]Live trades:[-]  %d\n", snap.LiveTrades)

	ws := snap.WebSocketStatus
	switch ws {
	case "connected":
		ws = "[green]connected[-]"
	case "disconnected", "reconnecting":
		ws = "[red]" + ws + "[-]"
	}
	fmt.Fprintf(&b, "[yellow]Live feed:[-]    %s\n", ws)

	if !snap.LastRefresh.IsZero() {
		fmt.Fprintf(&b, "[yellow]Last refresh:[-] %s\n", snap.LastRefresh.Format("15:04:05"))
	}

	if len(snap.FetchErrors) > 0 {
		fmt.Fprintf(&b, "\n[red]Fetch errors[-]\n")
		addrs := make([]string, 0, len(snap.FetchErrors))
		for addr := range snap.FetchErrors {
			addrs = append(addrs, addr)
		}
		sort.Strings(addrs)
		for _, addr := range addrs {
			fmt.Fprintf(&b, "  %s: %d\n", truncateAddress(addr), snap.FetchErrors[addr])
		}
	}

	v.text.SetText(b.String())
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
