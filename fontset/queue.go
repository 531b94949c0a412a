package fontset

import (
	"context"
	"strconv"
	"sync"
)

// OpKind is the kind of a queued operation.
type OpKind int

// see OpKind
const (
	OpLoad OpKind = iota
	OpUpdate
)

func (kind OpKind) String() string {
	switch kind {
	case OpLoad:
		return "load"
	case OpUpdate:
		return "update"
	}
	return "OpKind(" + strconv.Itoa(int(kind)) + ")"
}

// Operation is a queued operation of a font set.
type Operation struct {
	Seq  uint64
	Kind OpKind

	run     func(context.Context) error
	started bool // guarded by the queue's mutex
	done    chan struct{}
	err     error
}

func (op *Operation) finish(err error) {
	op.err = err
	close(op.done)
}

// Done returns a channel that is closed when the operation has finished.
func (op *Operation) Done() <-chan struct{} {
	return op.done
}

// Err returns the error of a finished operation.
func (op *Operation) Err() error {
	select {
	case <-op.done:
		return op.err
	default:
		return nil
	}
}

// Wait blocks until the operation has finished and returns its error, or until ctx is done.
func (op *Operation) Wait(ctx context.Context) error {
	select {
	case <-op.done:
		return op.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateQueue runs operations one at a time in the order they were enqueued. Enqueueing never blocks.
type UpdateQueue struct {
	observer Observer

	mu     sync.Mutex
	ops    []*Operation
	seq    uint64
	closed bool
	notify chan struct{}
}

func newUpdateQueue(observer Observer) *UpdateQueue {
	return &UpdateQueue{
		observer: observer,
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue appends an operation to the queue.
func (q *UpdateQueue) Enqueue(kind OpKind, run func(context.Context) error) *Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	op := &Operation{
		Seq:  q.seq,
		Kind: kind,
		run:  run,
		done: make(chan struct{}),
	}
	if q.closed {
		op.finish(ErrClosed)
		return op
	}
	q.ops = append(q.ops, op)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return op
}

// Queued returns the first operation of the given kind that has not yet started, or nil.
func (q *UpdateQueue) Queued(kind OpKind) *Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, op := range q.ops {
		if op.Kind == kind && !op.started {
			return op
		}
	}
	return nil
}

// Len returns the number of operations that have not yet started.
func (q *UpdateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

func (q *UpdateQueue) next() *Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ops) == 0 {
		return nil
	}
	op := q.ops[0]
	q.ops[0] = nil
	q.ops = q.ops[1:]
	op.started = true
	return op
}

// Run executes operations until ctx is done. Operations that have not started by then finish with ErrClosed.
func (q *UpdateQueue) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			q.close()
			return
		}
		op := q.next()
		if op == nil {
			select {
			case <-q.notify:
				continue
			case <-ctx.Done():
				q.close()
				return
			}
		}

		q.observer.OperationStarted(op.Seq, op.Kind)
		err := op.run(ctx)
		q.observer.OperationFinished(op.Seq, op.Kind, err)
		op.finish(err)
	}
}

func (q *UpdateQueue) close() {
	q.mu.Lock()
	ops := q.ops
	q.ops = nil
	q.closed = true
	q.mu.Unlock()

	for _, op := range ops {
		op.finish(ErrClosed)
	}
}
