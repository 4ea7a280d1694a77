package rest

import (
	"context"
	"sync"
)

// Outcome is the response to one submitted request.
type Outcome struct {
	Fetched Fetched
	Err     error
}

// submission is one accepted request. A non-nil reply routes the Outcome to
// its Exchange caller instead of Responses.
type submission struct {
	fetch Fetchable
	ctx   context.Context
	reply chan Outcome
}

// Session is a long-lived request channel over a Dispatcher. Requests run one
// at a time in submission order and each produces exactly one Outcome.
//
// Callers using Submit directly must drain Responses until it is closed.
type Session struct {
	requests chan submission
	outcomes chan Outcome
	closed   chan struct{}
	done     chan struct{}

	closeOnce sync.Once
}

// Open starts a session. It runs until Close is called or ctx ends.
func Open(ctx context.Context, d *Dispatcher) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Session{
		requests: make(chan submission),
		outcomes: make(chan Outcome, 1),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.serve(ctx, d)
	return s
}

func (s *Session) serve(ctx context.Context, d *Dispatcher) {
	defer close(s.done)
	defer close(s.outcomes)

	for {
		// Shutdown wins over a submitter already waiting on requests.
		if s.stopping(ctx) {
			return
		}

		select {
		case <-s.closed:
			return
		case <-ctx.Done():
			return
		case sub := <-s.requests:
			if s.stopping(ctx) {
				s.deliver(ctx, sub, Outcome{Err: ErrSessionClosed})
				return
			}
			if !s.deliver(ctx, sub, s.run(ctx, d, sub)) {
				return
			}
		}
	}
}

func (s *Session) stopping(ctx context.Context) bool {
	select {
	case <-s.closed:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// run fetches one submission. An Exchange caller that gives up cancels its
// own fetch without ending the session.
func (s *Session) run(ctx context.Context, d *Dispatcher, sub submission) Outcome {
	fetchCtx := ctx
	if sub.ctx != nil {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(sub.ctx, cancel)
		defer stop()
	}
	fetched, err := d.Fetch(fetchCtx, sub.fetch)
	return Outcome{Fetched: fetched, Err: err}
}

// deliver hands the outcome to its receiver and reports whether the loop
// should keep going.
func (s *Session) deliver(ctx context.Context, sub submission, outcome Outcome) bool {
	if sub.reply != nil {
		// reply is buffered for exactly this send.
		sub.reply <- outcome
		return true
	}
	select {
	case s.outcomes <- outcome:
		return true
	case <-ctx.Done():
		return false
	}
}

// Submit queues a request. It blocks until the session accepts it.
func (s *Session) Submit(ctx context.Context, f Fetchable) error {
	return s.submit(ctx, submission{fetch: f})
}

func (s *Session) submit(ctx context.Context, sub submission) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	select {
	case s.requests <- sub:
		return nil
	case <-s.closed:
		return ErrSessionClosed
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Responses yields one Outcome per request accepted through Submit, in order.
// It is closed once the session stops.
func (s *Session) Responses() <-chan Outcome {
	return s.outcomes
}

// Close stops accepting requests. A request already in flight completes and
// its Outcome is still delivered.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// Done is closed when the session loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Exchange submits req and waits for its result. The result never appears on
// Responses, and abandoning the wait through ctx leaves nothing behind for the
// next caller.
func Exchange[R any](ctx context.Context, s *Session, req Request[R]) (R, error) {
	var zero R
	if ctx == nil {
		ctx = context.Background()
	}

	reply := make(chan Outcome, 1)
	if err := s.submit(ctx, submission{fetch: Wrap(req), ctx: ctx, reply: reply}); err != nil {
		return zero, err
	}

	select {
	case outcome := <-reply:
		return unwrapOutcome[R](outcome)
	case <-s.done:
		// The loop may have answered just before exiting.
		select {
		case outcome := <-reply:
			return unwrapOutcome[R](outcome)
		default:
			return zero, ErrSessionClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func unwrapOutcome[R any](outcome Outcome) (R, error) {
	if outcome.Err != nil {
		var zero R
		return zero, outcome.Err
	}
	return Unwrap[R](outcome.Fetched)
}
