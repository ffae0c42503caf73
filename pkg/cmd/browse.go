package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
	"github.com/hbagdi/hitstub/pkg/db"
	"github.com/hbagdi/hitstub/pkg/log"
	"github.com/hbagdi/hitstub/pkg/model"
	"github.com/hbagdi/hitstub/pkg/printer"
	"github.com/rivo/tview"
	"github.com/skratchdot/open-golang/open"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	tBlack = tcell.NewRGBColor(0, 0, 0)
	tGreen = tcell.NewRGBColor(0, 154, 23) //nolint:gomnd
)

const footer = "[c[] Copy body [o[] Open body [q[] Quit"

type browser struct {
	app         *tview.Application
	hitTextArea *tview.TextView
	hitListView *tview.List
	hits        []model.Hit
	pages       *tview.Pages

	copyBody func(string) error
	openBody func(string) error
}

func (b *browser) Run() error {
	return b.app.Run()
}

func (b *browser) current() (model.Hit, bool) {
	i := b.hitListView.GetCurrentItem()
	if i < 0 || i >= len(b.hits) {
		return model.Hit{}, false
	}
	return b.hits[i], true
}

func (b *browser) listHandler() {
	b.hitTextArea.Clear()
	b.hitTextArea.SetDynamicColors(true)
	hit, ok := b.current()
	if !ok {
		return
	}
	p := printer.NewPrinter(printer.Opts{
		Writer: b.hitTextArea,
		Mode:   printer.ModeBrowser,
	})
	if err := p.Print(hit); err != nil {
		log.Logger.Debug("render hit", zap.Int("id", hit.ID), zap.Error(err))
	}
}

func (b *browser) keyHandler(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyRune {
		switch event.Rune() {
		case 'q':
			b.app.Stop()
		case 'c':
			b.copyCurrent()
		case 'o':
			b.openCurrent()
		}
	}
	return event
}

func (b *browser) copyCurrent() {
	hit, ok := b.current()
	if !ok {
		return
	}
	if err := b.copyBody(string(hit.Response.Body)); err != nil {
		b.notify(fmt.Sprintf("Failed to copy body: %v", err))
		return
	}
	b.notify("Body copied to clipboard")
}

func (b *browser) openCurrent() {
	hit, ok := b.current()
	if !ok {
		return
	}
	path, err := writeBodyFile(hit)
	if err != nil {
		b.notify(fmt.Sprintf("Failed to save body: %v", err))
		return
	}
	if err := b.openBody(path); err != nil {
		b.notify(fmt.Sprintf("Failed to open %s: %v", path, err))
	}
}

// writeBodyFile saves the body of hit to a temporary file named after the
// hit so that the default viewer can pick it up.
func writeBodyFile(hit model.Hit) (string, error) {
	ext := ".txt"
	if gjson.ValidBytes(hit.Response.Body) {
		ext = ".json"
	}
	dir, err := os.MkdirTemp("", "hitstub-")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%d%s", hit.StubID, hit.ID, ext))
	const fileMode = 0o600
	if err := os.WriteFile(path, hit.Response.Body, fileMode); err != nil {
		return "", err
	}
	return path, nil
}

func (b *browser) notify(text string) {
	const notifyModalPageName = "notify-modal"
	modal := newModal()
	modal.SetText(text)
	modal.AddButtons([]string{"back"})
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		b.pages.RemovePage(notifyModalPageName)
	})
	b.pages.AddPage(notifyModalPageName, modal, true, true)
}

func newModal() *tview.Modal {
	modal := tview.NewModal()
	modal.SetBackgroundColor(tGreen)
	return modal
}

func (b *browser) setupMainPage() {
	sidebarFrame := tview.NewFrame(b.hitListView)
	sidebarFrame.SetBackgroundColor(tBlack)
	sidebarFrame.AddText("Deliveries", true, tview.AlignCenter, tcell.ColorAntiqueWhite)
	sidebarFrame.SetBorders(0, 0, 0, 0, 0, 0)

	mainFlexbox := tview.NewFlex()
	mainFlexbox.SetBackgroundColor(tBlack)
	mainFlexbox.AddItem(sidebarFrame, 0, 1, true).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(b.hitTextArea, 0, 4, false), 0, 4, false) //nolint:gomnd

	mainFlexbox.SetInputCapture(b.keyHandler)

	mainFrame := tview.NewFrame(mainFlexbox)
	mainFrame.AddText("[::b]hitstub browser[::-]", true, tview.AlignCenter,
		tcell.ColorWhite).
		SetBorders(0, 0, 0, 0, 0, 0).
		AddText(footer, false, tview.AlignCenter, tcell.ColorWhite)

	mainFrame.SetTitle("hitstub browser").
		SetBorder(false).
		SetBorderPadding(0, 0, 0, 0).
		SetBackgroundColor(tBlack)

	b.pages.AddPage("main-page", mainFrame, true, true)
}

func (b *browser) setupHitTextArea() {
	b.hitTextArea = tview.NewTextView()
	b.hitTextArea.
		SetBorderPadding(1, 1, 1, 1).
		SetBorder(true).
		SetBackgroundColor(tBlack)
}

func (b *browser) setupApp() {
	b.app = tview.NewApplication().
		SetRoot(b.pages, true).
		EnableMouse(true)
}

func (b *browser) setupPages() {
	b.pages = tview.NewPages()
}

func (b *browser) setupHitsList() {
	b.hitListView = tview.NewList()
	b.hitListView.
		SetChangedFunc(func(index int, mainText string, secondaryText string, shortcut rune) {
			b.listHandler()
		}).
		SetFocusFunc(func() {
			b.listHandler()
		})
	b.hitListView.ShowSecondaryText(false).
		SetBorder(false).
		SetBackgroundColor(tBlack)
	b.refreshListView()
}

func (b *browser) refreshListView() {
	b.hitListView.Clear()
	for i := 0; i < len(b.hits); i++ {
		b.hitListView.AddItem(listTitle(b.hits[i]), "", 0, func() {
		})
	}
}

func listTitle(hit model.Hit) string {
	if hit.Failed() {
		return fmt.Sprintf("[red]ERR[-] @%s", hit.StubID)
	}
	return fmt.Sprintf("[%s][%d][-] @%s", colorForCode(hit.Response.Code),
		hit.Response.Code, hit.StubID)
}

func newBrowser(ctx context.Context, store *db.Store) (*browser, error) {
	hits, err := store.List(ctx, db.PageOpts{})
	if err != nil {
		return nil, fmt.Errorf("list hits: %v", err)
	}

	b := &browser{
		hits:     hits,
		copyBody: clipboard.WriteAll,
		openBody: open.Run,
	}

	b.setupHitTextArea()
	b.setupHitsList()
	b.setupPages()
	b.setupApp()
	b.setupMainPage()

	return b, nil
}

func executeBrowse(ctx context.Context) error {
	return withStore(func(store *db.Store) error {
		b, err := newBrowser(ctx, store)
		if err != nil {
			return fmt.Errorf("set up browser: %v", err)
		}
		if err := b.Run(); err != nil {
			return fmt.Errorf("run browser: %v", err)
		}
		return nil
	})
}

//nolint:gomnd
func colorForCode(code int) string {
	switch {
	case code < 200:
		return "white"
	case code < 300:
		return "green"
	case code < 400:
		return "yellow"
	case code < 500:
		return "yellow"
	case code < 600:
		return "red"
	default:
		return "white"
	}
}
