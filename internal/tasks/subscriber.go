package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reportctl/internal/models"
	"github.com/desertthunder/reportctl/internal/services"
	"github.com/desertthunder/reportctl/internal/shared"
)

// State is the subscriber's position in the progress state machine.
type State int

const (
	StateIdle State = iota
	StateOpen
	StateComplete
	StateErrored
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateComplete:
		return "complete"
	case StateErrored:
		return "errored"
	case StateSuperseded:
		return "superseded"
	default:
		return "idle"
	}
}

type input int

const (
	inputStart input = iota
	inputFrame
	inputTerminal
	inputFailure
	inputStop
)

// step is the transition function. A non-None outcome means the open subscription must be closed.
func step(from State, in input) (State, models.Outcome) {
	if from != StateOpen {
		if in == inputStart {
			return StateOpen, models.OutcomeNone
		}
		return from, models.OutcomeNone
	}

	switch in {
	case inputStart:
		return StateOpen, models.OutcomeSuperseded
	case inputTerminal:
		return StateComplete, models.OutcomeComplete
	case inputFailure:
		return StateErrored, models.OutcomeErrored
	case inputStop:
		return StateSuperseded, models.OutcomeSuperseded
	default:
		return StateOpen, models.OutcomeNone
	}
}

// Opener opens a progress stream. The stream must stop blocking once ctx is done.
type Opener func(ctx context.Context) (services.Stream, error)

// Delivery is one result read by a subscription's pump: a message payload or the error that ended the stream.
type Delivery struct {
	Gen  uint64
	Data []byte
	Err  error
}

// Subscription is a single open period of the progress stream.
type Subscription struct {
	gen        uint64
	ctx        context.Context
	cancel     context.CancelFunc
	deliveries chan Delivery
	done       chan struct{}
	once       sync.Once
}

func newSubscription(ctx context.Context, gen uint64) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	return &Subscription{
		gen:        gen,
		ctx:        ctx,
		cancel:     cancel,
		deliveries: make(chan Delivery),
		done:       make(chan struct{}),
	}
}

// Gen is the subscription's generation number.
func (s *Subscription) Gen() uint64 { return s.gen }

// Deliveries is closed when the pump exits.
func (s *Subscription) Deliveries() <-chan Delivery { return s.deliveries }

// Done is closed once the pump has exited and the stream is closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close stops the pump and releases the stream. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

func (s *Subscription) send(d Delivery) bool {
	d.Gen = s.gen
	select {
	case s.deliveries <- d:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Subscription) pump(open Opener) {
	defer close(s.done)
	defer close(s.deliveries)
	defer s.cancel()

	stream, err := open(s.ctx)
	if err != nil {
		if s.ctx.Err() == nil {
			s.send(Delivery{Err: fmt.Errorf("%w: %v", shared.ErrTransport, err)})
		}
		return
	}

	closed := make(chan struct{})
	go func() {
		<-s.ctx.Done()
		stream.Close()
		close(closed)
	}()
	defer func() {
		s.cancel()
		<-closed
	}()

	for {
		data, err := stream.Recv()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: stream ended before the report completed", shared.ErrTransport)
			} else {
				err = fmt.Errorf("%w: %v", shared.ErrTransport, err)
			}
			s.send(Delivery{Err: err})
			return
		}
		if !s.send(Delivery{Data: data}) {
			return
		}
	}
}

// Observer receives the subscriber's callbacks. Supersession has none.
type Observer interface {
	OnProgress(ev models.ProgressEvent)
	OnComplete(ev models.ProgressEvent)
	OnInterrupted(err error)
}

// Subscriber owns the progress subscription. It is not safe for concurrent use:
// Start, Stop, and Deliver must all be called from the host goroutine.
type Subscriber struct {
	open     Opener
	observer Observer
	logger   *log.Logger
	state    State
	current  *Subscription
	gen      uint64
	last     models.Outcome
}

// NewSubscriber creates an idle [Subscriber].
func NewSubscriber(open Opener, observer Observer, logger *log.Logger) *Subscriber {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Subscriber{open: open, observer: observer, logger: logger}
}

func (s *Subscriber) State() State { return s.state }

// Current is the open subscription, or nil.
func (s *Subscriber) Current() *Subscription { return s.current }

// LastOutcome is the outcome of the most recently retired subscription.
func (s *Subscriber) LastOutcome() models.Outcome { return s.last }

// Start opens a new subscription bound to ctx, superseding any open one.
//
// The returned outcome is [models.OutcomeSuperseded] when a previous subscription was retired.
// The stream is opened on the pump goroutine, so Start never blocks.
func (s *Subscriber) Start(ctx context.Context) (*Subscription, models.Outcome) {
	next, outcome := step(s.state, inputStart)
	if outcome != models.OutcomeNone {
		s.retire(outcome)
	}

	s.gen++
	sub := newSubscription(ctx, s.gen)
	s.current = sub
	s.state = next
	s.logger.Debug("progress subscription opened", "gen", sub.gen)

	go sub.pump(s.open)
	return sub, outcome
}

// Stop retires the open subscription without invoking any callback.
func (s *Subscriber) Stop() models.Outcome {
	next, outcome := step(s.state, inputStop)
	s.state = next
	if outcome != models.OutcomeNone {
		s.retire(outcome)
	}
	return outcome
}

// Deliver applies one delivery from a subscription's pump.
func (s *Subscriber) Deliver(d Delivery) models.Outcome {
	if s.state != StateOpen || s.current == nil || d.Gen != s.current.gen {
		s.logger.Debug("dropping stale delivery", "gen", d.Gen, "state", s.state)
		return models.OutcomeNone
	}

	if d.Err != nil {
		next, outcome := step(s.state, inputFailure)
		s.state = next
		s.retire(outcome)
		s.logger.Warn("progress stream interrupted", "err", d.Err)
		s.observer.OnInterrupted(d.Err)
		return outcome
	}

	ev, err := models.DecodeProgressEvent(d.Data)
	if err != nil {
		s.logger.Warn("skipping progress frame", "err", err)
		return models.OutcomeNone
	}

	in := inputFrame
	if ev.Complete {
		in = inputTerminal
	}
	next, outcome := step(s.state, in)
	s.state = next
	s.observer.OnProgress(ev)

	if outcome == models.OutcomeNone {
		return outcome
	}

	s.retire(outcome)
	s.observer.OnComplete(ev)
	return outcome
}

func (s *Subscriber) retire(o models.Outcome) {
	if s.current != nil {
		s.current.Close()
		s.logger.Debug("progress subscription closed", "gen", s.current.gen, "outcome", o)
	}
	s.current = nil
	s.last = o
}
