// Package ui implements the interactive report console using bubbletea's Elm architecture.
//
// A single screen holds:
//  1. Start and end date inputs (bubbles/textinput)
//  2. A progress bar (bubbles/progress) and a per-label bar chart drawn with lipgloss
//  3. The status line from [tasks.View]
//  4. The report history list (bubbles/list), refreshed on start and after every completed job
//
// The [Model] drives a [tasks.Controller]. The generate request runs in a [tea.Cmd]; progress deliveries are read
// one at a time from the subscription channel by [Model.waitForDelivery] and handed to the controller on the update
// goroutine, so the controller never sees concurrent calls.
//
// Keys: tab moves focus, enter generates (or opens the selected report), esc cancels the running job,
// ctrl+r reloads history, d downloads the selected report, ctrl+c quits.
package ui
