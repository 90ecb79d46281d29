package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgHistoryFetched MsgKind = iota
	MsgGenerateResult
	MsgDelivery
	MsgDownloaded
	MsgOpened
)

type historyFetched struct {
	entries []models.HistoryEntry
	err     error
}

type generateResult struct {
	r   models.DateRange
	err error
}

type delivery struct {
	sub *tasks.Subscription
	d   tasks.Delivery
	ok  bool
}

type fileResult struct {
	target string
	err    error
}

// historyFetchedMsg is the constructor for [MsgHistoryFetched]
func historyFetchedMsg(entries []models.HistoryEntry, err error) Msg {
	return Msg{kind: MsgHistoryFetched, data: historyFetched{entries, err}}
}

// generateResultMsg is the constructor for [MsgGenerateResult]
func generateResultMsg(r models.DateRange, err error) Msg {
	return Msg{kind: MsgGenerateResult, data: generateResult{r, err}}
}

// deliveryMsg is the constructor for [MsgDelivery]
func deliveryMsg(sub *tasks.Subscription, d tasks.Delivery, ok bool) Msg {
	return Msg{kind: MsgDelivery, data: delivery{sub, d, ok}}
}

// downloadedMsg is the constructor for [MsgDownloaded]
func downloadedMsg(path string, err error) Msg {
	return Msg{kind: MsgDownloaded, data: fileResult{path, err}}
}

// openedMsg is the constructor for [MsgOpened]
func openedMsg(url string, err error) Msg {
	return Msg{kind: MsgOpened, data: fileResult{url, err}}
}
