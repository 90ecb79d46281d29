package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/reportctl/internal/formatter"
	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/services"
	"github.com/desertthunder/reportctl/internal/shared"
	"github.com/desertthunder/reportctl/internal/tasks"
)

const (
	chartLabelWidth = 16
	chartMaxWidth   = 40
	historyFailed   = "Failed to load history"
)

// Focus is the focused area of the screen.
type Focus int

const (
	FocusStart Focus = iota
	FocusEnd
	FocusHistory
)

// HistoryCache stores the last fetched history listing.
type HistoryCache interface {
	Replace(ctx context.Context, entries []models.HistoryEntry) error
}

// Options configures a [Model].
type Options struct {
	Start       string // Initial start date
	End         string // Initial end date
	DownloadDir string
	Cache       HistoryCache
	Logger      *log.Logger
	OpenURL     func(url string) error // Defaults to [shared.OpenBrowser]
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	ctrl        *tasks.Controller
	history     services.HistoryProvider
	opts        Options
	logger      *log.Logger
	focus       Focus
	start       textinput.Model
	end         textinput.Model
	bar         progress.Model
	historyList list.Model
	entries     []models.HistoryEntry
	historyErr  error
	loading     bool
	refresh     bool
	notice      string
	err         error
	width       int
	height      int
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model that drives ctrl. The model becomes ctrl's history refresher.
func NewModel(ctx context.Context, ctrl *tasks.Controller, history services.HistoryProvider, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	m := &Model{
		ctx:         ctx,
		ctrl:        ctrl,
		history:     history,
		opts:        opts,
		logger:      opts.Logger,
		start:       newDateInput("Start: ", opts.Start),
		end:         newDateInput("End:   ", opts.End),
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(chartMaxWidth+chartLabelWidth)),
		historyList: newHistoryList(),
		help:        help.New(),
		keys:        newKeyMap(),
	}
	m.start.Focus()
	ctrl.SetHistory(m)
	return m
}

func newDateInput(prompt, value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = models.DateLayout
	ti.CharLimit = len(models.DateLayout)
	ti.Width = len(models.DateLayout) + 1
	ti.SetValue(value)
	return ti
}

// RefreshHistory queues a history reload. It is called by the controller during Update.
func (m *Model) RefreshHistory() {
	m.refresh = true
}

// Init initializes the TUI by fetching the report history.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(textinput.Blink, m.fetchHistory())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.historyList.SetSize(msg.Width-4, max(msg.Height-20, 6))
		m.bar.Width = min(msg.Width-4, chartMaxWidth+chartLabelWidth)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateFocused(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgHistoryFetched:
		data := msg.data.(historyFetched)
		m.loading = false
		if data.err != nil {
			m.historyErr = data.err
			m.logger.Error("failed to load history", "err", data.err)
			return m, nil
		}
		m.historyErr = nil
		m.entries = data.entries
		m.cacheHistory(data.entries)
		return m, m.historyList.SetItems(historyItems(data.entries))

	case MsgGenerateResult:
		data := msg.data.(generateResult)
		if data.err != nil {
			m.ctrl.Reject(data.err)
			return m, nil
		}
		sub := m.ctrl.Accept(m.ctx, data.r)
		return m, m.waitForDelivery(sub)

	case MsgDelivery:
		data := msg.data.(delivery)
		if !data.ok {
			return m, nil
		}

		outcome := m.ctrl.Deliver(data.d)

		var cmds []tea.Cmd
		if outcome == models.OutcomeNone && m.ctrl.Subscriber().Current() == data.sub {
			cmds = append(cmds, m.waitForDelivery(data.sub))
		}
		if m.refresh {
			m.refresh = false
			m.loading = true
			cmds = append(cmds, m.fetchHistory())
		}
		return m, tea.Batch(cmds...)

	case MsgDownloaded:
		data := msg.data.(fileResult)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.notice = fmt.Sprintf("Saved %s", data.target)
		return m, nil

	case MsgOpened:
		data := msg.data.(fileResult)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.notice = fmt.Sprintf("Opened %s", data.target)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.ctrl.Cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		return m, m.setFocus((m.focus + 1) % 3)
	case key.Matches(msg, m.keys.prev):
		return m, m.setFocus((m.focus + 2) % 3)
	case key.Matches(msg, m.keys.cancel):
		if m.ctrl.Cancel() != models.OutcomeNone {
			m.notice = ""
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.loading = true
		return m, m.fetchHistory()
	}

	if m.focus == FocusHistory {
		switch {
		case key.Matches(msg, m.keys.open):
			return m, m.openSelected()
		case key.Matches(msg, m.keys.download):
			return m, m.downloadSelected()
		case key.Matches(msg, m.keys.help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case msg.String() == "q":
			m.ctrl.Cancel()
			return m, tea.Quit
		}
	} else if key.Matches(msg, m.keys.submit) {
		return m, m.submit()
	}

	return m.updateFocused(msg)
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case FocusStart:
		m.start, cmd = m.start.Update(msg)
	case FocusEnd:
		m.end, cmd = m.end.Update(msg)
	case FocusHistory:
		m.historyList, cmd = m.historyList.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f Focus) tea.Cmd {
	m.focus = f
	m.start.Blur()
	m.end.Blur()
	switch f {
	case FocusStart:
		return m.start.Focus()
	case FocusEnd:
		return m.end.Focus()
	}
	return nil
}

// submit validates the inputs and sends the generate request off the update goroutine.
func (m *Model) submit() tea.Cmd {
	m.notice = ""
	m.err = nil

	if !m.ctrl.CanSubmit() {
		m.err = shared.ErrSubmissionDisabled
		return nil
	}

	r, err := models.ParseDateRange(m.start.Value(), m.end.Value())
	if err != nil {
		m.err = err
		return nil
	}
	if err := m.ctrl.Prepare(r); err != nil {
		m.err = err
		return nil
	}

	ctx := m.ctx
	return func() tea.Msg {
		return generateResultMsg(r, m.ctrl.Request(ctx, r))
	}
}

// waitForDelivery reads one delivery from sub. Deliveries must not be read anywhere else.
func (m *Model) waitForDelivery(sub *tasks.Subscription) tea.Cmd {
	return func() tea.Msg {
		d, ok := <-sub.Deliveries()
		return deliveryMsg(sub, d, ok)
	}
}

func (m *Model) fetchHistory() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		entries, err := m.history.List(ctx)
		return historyFetchedMsg(entries, err)
	}
}

func (m *Model) cacheHistory(entries []models.HistoryEntry) {
	if m.opts.Cache == nil {
		return
	}
	if err := m.opts.Cache.Replace(m.ctx, entries); err != nil {
		m.logger.Warn("failed to cache history", "err", err)
	}
}

func (m *Model) selected() (models.HistoryEntry, bool) {
	item, ok := m.historyList.SelectedItem().(historyItem)
	if !ok {
		return models.HistoryEntry{}, false
	}
	return item.entry, true
}

func (m *Model) openSelected() tea.Cmd {
	entry, ok := m.selected()
	if !ok {
		return nil
	}
	url := m.history.DownloadURL(entry.File)
	open := m.opts.OpenURL
	return func() tea.Msg {
		return openedMsg(url, open(url))
	}
}

func (m *Model) downloadSelected() tea.Cmd {
	entry, ok := m.selected()
	if !ok {
		return nil
	}
	ctx, dir := m.ctx, m.opts.DownloadDir
	return func() tea.Msg {
		path, err := m.history.Download(ctx, entry.File, dir)
		return downloadedMsg(path, err)
	}
}

// View renders the whole screen.
func (m *Model) View() string {
	view := m.ctrl.View()

	sections := []string{
		styles.title.Render("Report Generator"),
		m.renderForm(),
		m.bar.ViewAs(view.Percent / 100),
	}
	if chart := renderChart(view.Bars); chart != "" {
		sections = append(sections, chart)
	}
	sections = append(sections, m.renderStatus(view), m.renderHistory(), m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderForm() string {
	inputs := lipgloss.JoinVertical(lipgloss.Left, m.start.View(), m.end.View())
	if m.focus == FocusHistory {
		return styles.frame.Render(inputs)
	}
	return styles.focus.Render(inputs)
}

func (m *Model) renderStatus(view tasks.View) string {
	var lines []string

	switch {
	case view.ReportFile != "" && view.Enabled:
		lines = append(lines, styles.ok.Render(view.Status))
	case view.Status == tasks.StatusInterrupted || view.Status == tasks.StatusRejected:
		lines = append(lines, styles.err.Render(view.Status))
	default:
		lines = append(lines, view.Status)
	}

	if m.err != nil {
		lines = append(lines, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if view.Err != nil && errors.Is(view.Err, shared.ErrValidation) {
		lines = append(lines, styles.warn.Render(view.Err.Error()))
	}
	if m.notice != "" {
		lines = append(lines, styles.help.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderHistory() string {
	var body string
	switch {
	case m.historyErr != nil:
		body = styles.err.Render(historyFailed)
	case m.loading && len(m.entries) == 0:
		body = styles.help.Render("Loading history...")
	case len(m.entries) == 0:
		body = styles.help.Render(formatter.EmptyHistory)
	default:
		body = m.historyList.View()
	}

	if m.focus == FocusHistory {
		return styles.focus.Render(body)
	}
	return styles.frame.Render(body)
}

// renderChart draws one horizontal bar per label, scaled to the largest count.
func renderChart(bars []models.Bar) string {
	if len(bars) == 0 {
		return ""
	}

	peak := 0.0
	for _, b := range bars {
		peak = math.Max(peak, b.Count)
	}

	rows := make([]string, len(bars))
	for i, b := range bars {
		width := 0
		if peak > 0 && b.Count > 0 {
			width = max(1, int(math.Round(b.Count/peak*chartMaxWidth)))
		}
		label := b.Label
		if len(label) > chartLabelWidth-1 {
			label = label[:chartLabelWidth-2] + "…"
		}
		rows[i] = lipgloss.JoinHorizontal(lipgloss.Top,
			styles.label.Render(label),
			styles.bar.Render(strings.Repeat("█", width)),
			" "+formatCount(b.Count),
		)
	}
	return strings.Join(rows, "\n")
}

func formatCount(c float64) string {
	if c == math.Trunc(c) {
		return fmt.Sprintf("%.0f", c)
	}
	return fmt.Sprintf("%.2f", c)
}
