package freqsched

import (
	"context"

	"github.com/hazyhaar/recrawl/pagedb"
)

// Mailbox serialises access to a Scheduler so that multiple fetchers
// can pull batches concurrently without contending for the store's
// writer slot. One goroutine (Serve) owns the scheduler; callers
// rendezvous with it over channels.
type Mailbox struct {
	sched *Scheduler
	calls chan mailboxCall
}

type mailboxCall struct {
	run   func(ctx context.Context) (any, error)
	ctx   context.Context
	reply chan mailboxReply
}

type mailboxReply struct {
	value any
	err   error
}

// NewMailbox wraps sched. Serve must be running for calls to proceed.
func NewMailbox(sched *Scheduler) *Mailbox {
	return &Mailbox{
		sched: sched,
		calls: make(chan mailboxCall),
	}
}

// Serve processes calls until ctx is cancelled. It does not close the
// scheduler.
func (m *Mailbox) Serve(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case call := <-m.calls:
			value, err := call.run(call.ctx)
			select {
			case call.reply <- mailboxReply{value: value, err: err}:
			case <-call.ctx.Done():
			}
		}
	}
}

func (m *Mailbox) do(ctx context.Context, run func(ctx context.Context) (any, error)) (any, error) {
	call := mailboxCall{run: run, ctx: ctx, reply: make(chan mailboxReply, 1)}
	select {
	case m.calls <- call:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-call.reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Request dequeues a batch through the serving goroutine.
func (m *Mailbox) Request(ctx context.Context, maxRequests int) (*PageRequest, error) {
	v, err := m.do(ctx, func(ctx context.Context) (any, error) {
		return m.sched.Request(ctx, maxRequests)
	})
	if err != nil {
		return nil, err
	}
	return v.(*PageRequest), nil
}

// Add records a completed fetch through the serving goroutine.
func (m *Mailbox) Add(ctx context.Context, page *pagedb.CrawledPage) error {
	_, err := m.do(ctx, func(ctx context.Context) (any, error) {
		return nil, m.sched.Add(ctx, page)
	})
	return err
}
