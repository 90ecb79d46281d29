// Package tasks drives report jobs from submission to completion.
//
// # Job Initiator
//
// [Controller] validates a [models.DateRange], asks the [services.ReportService] to start a job, and hands the
// accepted job to a [Subscriber]. It owns the [View] the CLI and TUI render and re-enables submission on every
// terminal outcome. Only a completed job refreshes the history list through [HistoryRefresher].
//
// # Progress Subscriber
//
// [Subscriber] owns at most one live [Subscription]. Each subscription runs a pump goroutine that reads the
// stream and forwards [Delivery] values; the host calls [Subscriber.Deliver] for each one on a single goroutine.
// State changes go through one transition table:
//
//	Idle|Open --start--> Open
//	Open --frame-->      Open
//	Open --terminal-->   Complete
//	Open --failure-->    Errored
//	Open --stop-->       Superseded
//
// Every edge out of Open closes the subscription and yields exactly one [models.Outcome]. Deliveries from a
// subscription that is no longer current are dropped.
//
// # Ledger
//
// The optional [RunRecorder] persists each accepted job as a [models.JobRun] and its outcome
// (repositories.JobRunRepository).
package tasks
