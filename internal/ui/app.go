// Package ui provides the terminal user interface.
package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/polymates/engine/internal/feed"
	"github.com/polymates/engine/internal/metrics"
	"github.com/polymates/engine/internal/store"
	"github.com/polymates/engine/internal/wallet"
)

// MarketSearcher looks up markets by free-text query.
type MarketSearcher interface {
	SearchMarkets(ctx context.Context, query string) ([]store.MarketSummary, error)
}

// App is the main TUI application. It implements feed.Renderer so the
// feed service pushes every refresh straight into the table.
type App struct {
	app    *tview.Application
	pages  *tview.Pages
	layout *tview.Flex

	// Views
	feedView    *FeedView
	walletPanel *WalletPanel
	searchView  *SearchView
	statsView   *StatsView
	statusBar   *tview.TextView
	walletInput *tview.InputField
	searchInput *tview.InputField

	// Collaborators
	feed     *feed.Service
	registry *wallet.Registry
	searcher MarketSearcher
	tracker  *metrics.Tracker
	state    *store.StateStore

	// Data channels
	tradeChan <-chan store.Trade

	// State
	mu       sync.Mutex
	settings store.Settings
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewApp creates the TUI application. tradeChan may be nil when the
// live feed is disabled.
func NewApp(feedSvc *feed.Service, registry *wallet.Registry, searcher MarketSearcher,
	tracker *metrics.Tracker, state *store.StateStore, tradeChan <-chan store.Trade) *App {

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		feed:      feedSvc,
		registry:  registry,
		searcher:  searcher,
		tracker:   tracker,
		state:     state,
		tradeChan: tradeChan,
		ctx:       ctx,
		cancel:    cancel,
	}

	a.settings = store.DefaultSettings()
	a.state.Get(store.KeySettings, &a.settings)

	a.feedView = NewFeedView(registry.Nickname, registry.IsFavorite)
	a.feedView.SetHideWallets(a.settings.HideWallets)
	a.walletPanel = NewWalletPanel(registry.Nickname)
	a.walletPanel.SetHideWallets(a.settings.HideWallets)
	a.searchView = NewSearchView(registry.IsFavorite)
	a.statsView = NewStatsView()

	a.applyTheme()
	a.setupLayout()
	a.setupKeyboard()

	return a
}

// RenderFeed receives the filtered feed from the feed service. It is
// called from refresh goroutines, never from the event loop.
func (a *App) RenderFeed(trades []store.Trade) {
	a.app.QueueUpdateDraw(func() {
		a.feedView.SetTrades(trades)
	})
}

// setupLayout arranges the panels.
func (a *App) setupLayout() {
	a.statusBar = tview.NewTextView().SetDynamicColors(true)
	a.updateStatusBar()

	a.walletInput = tview.NewInputField().SetLabel("Add wallet: ").SetFieldWidth(0)
	a.walletInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			a.app.SetFocus(a.feedView.Widget())
			return
		}
		input := a.walletInput.GetText()
		a.walletInput.SetText("")
		a.app.SetFocus(a.feedView.Widget())
		go a.addWallet(input)
	})

	a.searchInput = tview.NewInputField().SetLabel("Search: ").SetFieldWidth(0)
	a.searchInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			a.app.SetFocus(a.feedView.Widget())
			return
		}
		query := a.searchInput.GetText()
		a.app.SetFocus(a.searchView.Widget())
		go a.runSearch(query)
	})

	// Left column: wallets over stats. Right column: feed over search.
	leftCol := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.walletPanel.Widget(), 0, 2, false).
		AddItem(a.statsView.Widget(), 0, 1, false)

	rightCol := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.feedView.Widget(), 0, 3, true).
		AddItem(a.searchView.Widget(), 0, 1, false)

	body := tview.NewFlex().
		AddItem(leftCol, 0, 1, false).
		AddItem(rightCol, 0, 3, true)

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(a.walletInput, 1, 0, false).
		AddItem(a.searchInput, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.pages = tview.NewPages().AddPage("main", a.layout, true, true)
	a.app.SetRoot(a.pages, true)

	a.maybeShowOnboarding()
}

// setupKeyboard configures keyboard shortcuts.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Let the input fields take everything while focused.
		if a.app.GetFocus() == a.walletInput || a.app.GetFocus() == a.searchInput {
			return event
		}

		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case 'r', 'R':
				go a.forceRefresh()
				return nil
			case 'f':
				a.cycleFilter()
				return nil
			case 'a':
				a.app.SetFocus(a.walletInput)
				return nil
			case '/':
				a.app.SetFocus(a.searchInput)
				return nil
			case 'd':
				a.removeSelectedWallet()
				return nil
			case 's':
				a.toggleSelectedFavorite()
				return nil
			case 'h':
				a.toggleHideWallets()
				return nil
			case 't':
				a.toggleTheme()
				return nil
			}
		case tcell.KeyTab:
			a.cycleFocus()
			return nil
		}
		return event
	})
}

// Run starts the TUI (blocking).
func (a *App) Run() error {
	go a.processLiveTrades()
	go a.updateLoop()
	go a.autoRefreshLoop()
	go a.feed.Refresh(a.ctx)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// processLiveTrades invalidates the cache and refreshes whenever a
// trade arrives over the live connection.
func (a *App) processLiveTrades() {
	if a.tradeChan == nil {
		return
	}
	for {
		select {
		case <-a.ctx.Done():
			return
		case _, ok := <-a.tradeChan:
			if !ok {
				return
			}
			a.tracker.RecordLiveTrade()
			a.feed.Invalidate()
			a.feed.Refresh(a.ctx)
		}
	}
}

// updateLoop periodically refreshes the stats panel and the roster.
func (a *App) updateLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			snapshot := a.tracker.Snapshot()
			wallets := a.registry.Wallets()

			a.app.QueueUpdateDraw(func() {
				a.statsView.Update(snapshot)
				a.walletPanel.SetWallets(wallets)
				a.updateStatusBar()
			})
		}
	}
}

// autoRefreshLoop re-runs the feed on the configured interval. The
// cache TTL still applies, so a short interval just serves cache hits.
func (a *App) autoRefreshLoop() {
	a.mu.Lock()
	interval := time.Duration(a.settings.RefreshIntervalSeconds) * time.Second
	a.mu.Unlock()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.feed.Refresh(a.ctx)
		}
	}
}

// forceRefresh bypasses the cache.
func (a *App) forceRefresh() {
	a.feed.Invalidate()
	a.feed.Refresh(a.ctx)
}

// addWallet registers an address or ENS name and refreshes the feed.
func (a *App) addWallet(input string) {
	w, err := a.registry.Add(a.ctx, input)
	if err != nil {
		a.flashStatus(fmt.Sprintf("[red]add failed: %v[-]", err))
		return
	}
	a.flashStatus(fmt.Sprintf("[green]tracking %s[-]", truncateAddress(w.Address)))
	a.forceRefresh()
}

// removeSelectedWallet drops the highlighted wallet from the roster.
// Runs on the event loop; only the refresh leaves it.
func (a *App) removeSelectedWallet() {
	address := a.walletPanel.Selected()
	if address == "" {
		return
	}
	if a.registry.Remove(address) {
		a.statusBar.SetText(fmt.Sprintf(" removed %s", truncateAddress(address)))
		go a.forceRefresh()
	}
}

// toggleSelectedFavorite stars or unstars the market under the cursor,
// in whichever of the two tables holds focus.
func (a *App) toggleSelectedFavorite() {
	marketID := a.feedView.SelectedMarketID()
	if a.app.GetFocus() == a.searchView.Widget() {
		marketID = a.searchView.SelectedMarketID()
	}
	if marketID == "" {
		return
	}
	a.registry.ToggleFavorite(marketID)
	a.feedView.Refresh()
}

// cycleFilter steps all -> buy -> sell -> all.
func (a *App) cycleFilter() {
	next := feed.FilterAll
	switch a.feed.Filter() {
	case feed.FilterAll:
		next = feed.FilterBuy
	case feed.FilterBuy:
		next = feed.FilterSell
	}
	go a.feed.SetFilter(next)
	a.statusBar.SetText(fmt.Sprintf(" [yellow]filter:[-] %s", next))
}

// toggleHideWallets flips address masking and persists the setting.
func (a *App) toggleHideWallets() {
	a.mu.Lock()
	a.settings.HideWallets = !a.settings.HideWallets
	hide := a.settings.HideWallets
	a.state.Put(store.KeySettings, a.settings)
	a.mu.Unlock()

	a.feedView.SetHideWallets(hide)
	a.walletPanel.SetHideWallets(hide)
}

// toggleTheme switches between the dark and light palettes and
// persists the choice.
func (a *App) toggleTheme() {
	theme := "dark"
	a.state.Get(store.KeyTheme, &theme)
	if theme == "dark" {
		theme = "light"
	} else {
		theme = "dark"
	}
	a.state.Put(store.KeyTheme, theme)
	a.applyTheme()
}

func (a *App) applyTheme() {
	theme := "dark"
	a.state.Get(store.KeyTheme, &theme)

	if theme == "light" {
		tview.Styles.PrimitiveBackgroundColor = tcell.ColorWhite
		tview.Styles.PrimaryTextColor = tcell.ColorBlack
		tview.Styles.BorderColor = tcell.ColorGray
		tview.Styles.TitleColor = tcell.ColorBlack
		return
	}
	tview.Styles.PrimitiveBackgroundColor = tcell.ColorDefault
	tview.Styles.PrimaryTextColor = tcell.ColorWhite
	tview.Styles.BorderColor = tcell.ColorGray
	tview.Styles.TitleColor = tcell.ColorWhite
}

// maybeShowOnboarding shows a one-time help modal on first launch.
func (a *App) maybeShowOnboarding() {
	var done bool
	if a.state.Get(store.KeyOnboarding, &done) && done {
		return
	}

	modal := tview.NewModal().
		SetText("Welcome to Polymates.\n\n" +
			"a  add a wallet (0x address, Solana address, or ENS name)\n" +
			"d  remove the selected wallet\n" +
			"/  search markets    s  star a market\n" +
			"f  cycle buy/sell filter    r  force refresh\n" +
			"h  hide addresses    t  toggle theme    q  quit").
		AddButtons([]string{"Got it"}).
		SetDoneFunc(func(int, string) {
			a.state.Put(store.KeyOnboarding, true)
			a.pages.RemovePage("onboarding")
			a.app.SetFocus(a.feedView.Widget())
		})

	a.pages.AddPage("onboarding", modal, true, true)
}

// runSearch queries markets and fills the search panel.
func (a *App) runSearch(query string) {
	results, err := a.searcher.SearchMarkets(a.ctx, query)
	if err != nil {
		a.flashStatus(fmt.Sprintf("[red]search failed: %v[-]", err))
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.searchView.SetResults(results)
	})
}

// cycleFocus rotates focus between the interactive panels.
func (a *App) cycleFocus() {
	order := []tview.Primitive{
		a.feedView.Widget(),
		a.walletPanel.Widget(),
		a.searchView.Widget(),
	}
	current := a.app.GetFocus()
	for i, p := range order {
		if p == current {
			a.app.SetFocus(order[(i+1)%len(order)])
			return
		}
	}
	a.app.SetFocus(order[0])
}

func (a *App) updateStatusBar() {
	filter := a.feed.Filter()
	a.statusBar.SetText(fmt.Sprintf(
		" [yellow]filter:[-] %s   [gray]a add  d del  / search  s star  f filter  r refresh  h hide  t theme  q quit[-]",
		filter))
}

// flashStatus shows a transient message in the status bar.
func (a *App) flashStatus(msg string) {
	a.app.QueueUpdateDraw(func() {
		a.statusBar.SetText(" " + msg)
	})
	go func() {
		select {
		case <-a.ctx.Done():
		case <-time.After(4 * time.Second):
			a.app.QueueUpdateDraw(a.updateStatusBar)
		}
	}()
}
