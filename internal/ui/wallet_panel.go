package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/polymates/engine/internal/store"
)

// WalletPanel lists tracked wallets with nicknames and a chain tag.
type WalletPanel struct {
	list *tview.List

	nickname    func(address string) string
	hideWallets bool
	wallets     []store.Wallet
}

// NewWalletPanel creates the wallet roster view.
func NewWalletPanel(nickname func(string) string) *WalletPanel {
	list := tview.NewList().
		ShowSecondaryText(true).
		SetSelectedFocusOnly(true)

	list.SetTitle(" Wallets ").SetBorder(true)

	return &WalletPanel{
		list:     list,
		nickname: nickname,
	}
}

// Widget returns the tview primitive.
func (p *WalletPanel) Widget() tview.Primitive {
	return p.list
}

// SetHideWallets toggles address masking.
func (p *WalletPanel) SetHideWallets(hide bool) {
	p.hideWallets = hide
	p.SetWallets(p.wallets)
}

// SetWallets replaces the roster.
func (p *WalletPanel) SetWallets(wallets []store.Wallet) {
	p.wallets = wallets
	p.list.Clear()

	for _, w := range wallets {
		main := truncateAddress(w.Address)
		if p.hideWallets {
			main = "•••"
		}
		if p.nickname != nil {
			if nick := p.nickname(w.Address); nick != "" {
				main = nick
			}
		}
		secondary := fmt.Sprintf("  %s", chainTag(w.Blockchain))
		p.list.AddItem(main, secondary, 0, nil)
	}

	p.list.SetTitle(fmt.Sprintf(" Wallets (%d) ", len(wallets)))
}

// Selected returns the address of the highlighted wallet, or "".
func (p *WalletPanel) Selected() string {
	idx := p.list.GetCurrentItem()
	if idx < 0 || idx >= len(p.wallets) {
		return ""
	}
	return p.wallets[idx].Address
}

func chainTag(chain store.Blockchain) string {
	switch chain {
	case store.BlockchainSolana:
		return "[magenta]SOL[-]"
	default:
		return "[blue]ETH[-]"
	}
}
