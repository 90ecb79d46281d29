package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/services"
	"github.com/desertthunder/reportctl/internal/shared"
)

// HistoryRefresher reloads the report history after a job completes.
type HistoryRefresher interface {
	RefreshHistory()
}

// RunRecorder persists accepted jobs and their outcomes.
type RunRecorder interface {
	Create(ctx context.Context, run *models.JobRun) error
	Finish(ctx context.Context, run *models.JobRun) error
}

// Controller is the job initiator. Like [Subscriber] it must be driven from a single goroutine;
// only [Controller.Request] may run elsewhere.
type Controller struct {
	api     services.ReportService
	sub     *Subscriber
	history HistoryRefresher
	ledger  RunRecorder
	logger  *log.Logger

	view    View
	pending bool
	run     *models.JobRun
	runCtx  context.Context

	// OnChange is called with the new view after every change.
	OnChange func(View)
}

// NewController wires a controller to api. history may be nil.
func NewController(api services.ReportService, history HistoryRefresher, logger *log.Logger) *Controller {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	c := &Controller{
		api:     api,
		history: history,
		logger:  logger,
		view:    idleView(),
		runCtx:  context.Background(),
	}
	c.sub = NewSubscriber(api.OpenProgress, c, logger)
	return c
}

// WithLedger records every accepted job through r.
func (c *Controller) WithLedger(r RunRecorder) *Controller {
	c.ledger = r
	return c
}

// SetHistory replaces the history refresher.
func (c *Controller) SetHistory(h HistoryRefresher) {
	c.history = h
}

func (c *Controller) View() View              { return c.view }
func (c *Controller) CanSubmit() bool         { return c.view.Enabled && !c.pending }
func (c *Controller) Subscriber() *Subscriber { return c.sub }

// Run is the ledger record of the current or last accepted job.
func (c *Controller) Run() *models.JobRun { return c.run }

// Submit validates r, starts the job, and opens its progress subscription.
//
// A job already streaming progress is superseded.
func (c *Controller) Submit(ctx context.Context, r models.DateRange) (*Subscription, error) {
	if err := c.Prepare(r); err != nil {
		return nil, err
	}
	if err := c.Request(ctx, r); err != nil {
		c.Reject(err)
		return nil, err
	}
	return c.Accept(ctx, r), nil
}

// Prepare validates r and disables submission until [Controller.Accept] or [Controller.Reject].
func (c *Controller) Prepare(r models.DateRange) error {
	if err := r.Validate(); err != nil {
		c.view.Err = err
		c.notify()
		return err
	}
	if c.pending {
		return shared.ErrSubmissionDisabled
	}

	c.pending = true
	c.view = submittingView(c.view)
	c.notify()
	return nil
}

// Request sends the generate request. It does not touch controller state.
func (c *Controller) Request(ctx context.Context, r models.DateRange) error {
	if err := c.api.Generate(ctx, r); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrSubmission, err)
	}
	return nil
}

// Reject records a failed generate request and re-enables submission.
func (c *Controller) Reject(err error) {
	c.pending = false
	c.view = rejectedView(c.view, err)
	c.logger.Error("report request rejected", "err", err)
	c.notify()
}

// Accept resets the view and opens the progress subscription for the accepted job.
func (c *Controller) Accept(ctx context.Context, r models.DateRange) *Subscription {
	c.pending = false
	c.view = preparingView()

	run := models.NewJobRun(r)
	c.runCtx = context.WithoutCancel(ctx)
	if c.ledger != nil {
		if err := c.ledger.Create(c.runCtx, run); err != nil {
			c.logger.Warn("failed to record job run", "id", run.ID, "err", err)
		}
	}

	sub, prev := c.sub.Start(ctx)
	if prev == models.OutcomeSuperseded {
		c.finishRun(models.OutcomeSuperseded, "", nil)
	}
	c.run = run

	c.logger.Info("report job accepted", "id", run.ID, "range", r, "gen", sub.Gen())
	c.notify()
	return sub
}

// Cancel retires the open subscription. The job's outcome on the backend stays unknown.
func (c *Controller) Cancel() models.Outcome {
	outcome := c.sub.Stop()
	if outcome == models.OutcomeNone {
		return outcome
	}
	c.finishRun(outcome, "", nil)
	c.view = cancelledView(c.view)
	c.notify()
	return outcome
}

// Deliver forwards a pump delivery to the subscriber.
func (c *Controller) Deliver(d Delivery) models.Outcome {
	return c.sub.Deliver(d)
}

// Watch consumes sub on the calling goroutine until it reaches a terminal outcome.
//
// Cancelling ctx cancels the job's subscription.
func (c *Controller) Watch(ctx context.Context, sub *Subscription) (models.Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			if c.sub.Current() == sub {
				c.Cancel()
			}
			return models.OutcomeSuperseded, ctx.Err()
		case d, ok := <-sub.Deliveries():
			if !ok {
				if c.sub.Current() == sub {
					return c.Cancel(), ctx.Err()
				}
				return c.sub.LastOutcome(), nil
			}
			if o := c.Deliver(d); o != models.OutcomeNone {
				return o, nil
			}
		}
	}
}

func (c *Controller) OnProgress(ev models.ProgressEvent) {
	c.view = progressView(c.view, ev)
	c.logger.Debug("progress", "percent", ev.Percent, "current", ev.Current, "total", ev.Total)
	c.notify()
}

func (c *Controller) OnComplete(ev models.ProgressEvent) {
	c.view = completeView(c.view, ev)
	c.finishRun(models.OutcomeComplete, ev.ReportFile, nil)
	c.logger.Info("report complete", "file", ev.ReportFile)
	c.notify()
	if c.history != nil {
		c.history.RefreshHistory()
	}
}

func (c *Controller) OnInterrupted(err error) {
	c.view = interruptedView(c.view, err)
	c.finishRun(models.OutcomeErrored, "", err)
	c.notify()
}

func (c *Controller) finishRun(o models.Outcome, file string, err error) {
	if c.run == nil || c.run.FinishedAt != nil {
		return
	}
	c.run.Finish(o, file, err)
	if c.ledger == nil {
		return
	}
	if err := c.ledger.Finish(c.runCtx, c.run); err != nil {
		c.logger.Warn("failed to record job outcome", "id", c.run.ID, "err", err)
	}
}

func (c *Controller) notify() {
	if c.OnChange != nil {
		c.OnChange(c.view)
	}
}
