package quell

import (
	"context"
	"fmt"
)

// Callback receives the outcome of an asynchronous record operation. rec is
// nil when the operation failed or a load found no row.
type Callback func(err error, rec *Record)

// Op is a record operation run by Record.Go. found reports whether the
// operation produced the record, which is false only for a load miss.
type Op func(ctx context.Context, r *Record) (found bool, err error)

// Deferred is the pending result of an operation started with Record.Go.
type Deferred struct {
	done chan struct{}
	rec  *Record
	err  error
}

// Done is closed once the operation finished and its callback returned.
func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the operation finished.
func (d *Deferred) Wait() (*Record, error) {
	<-d.done
	return d.rec, d.err
}

// Go runs op in its own goroutine. cb, when not nil, is called exactly once
// with the outcome before the Deferred settles.
func (r *Record) Go(ctx context.Context, op Op, cb Callback) *Deferred {
	d := &Deferred{done: make(chan struct{})}

	go func() {
		defer close(d.done)

		found, err := runOp(ctx, r, op)
		if err == nil && found {
			d.rec = r
		}
		d.err = err

		if cb != nil {
			cb(d.err, d.rec)
		}
	}()

	return d
}

func runOp(ctx context.Context, r *Record, op Op) (found bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			found, err = false, fmt.Errorf("record operation panicked: %v", p)
		}
	}()
	return op(ctx, r)
}

func (r *Record) LoadAsync(ctx context.Context, value any, cb Callback, options ...QueryOption) *Deferred {
	return r.Go(ctx, func(ctx context.Context, r *Record) (bool, error) {
		return r.Load(ctx, value, options...)
	}, cb)
}

func (r *Record) InsertAsync(ctx context.Context, cb Callback, options ...QueryOption) *Deferred {
	return r.Go(ctx, writeOp((*Record).Insert, options), cb)
}

func (r *Record) UpdateAsync(ctx context.Context, cb Callback, options ...QueryOption) *Deferred {
	return r.Go(ctx, writeOp((*Record).Update, options), cb)
}

func (r *Record) DeleteAsync(ctx context.Context, cb Callback, options ...QueryOption) *Deferred {
	return r.Go(ctx, writeOp((*Record).Delete, options), cb)
}

func (r *Record) SaveAsync(ctx context.Context, cb Callback, options ...QueryOption) *Deferred {
	return r.Go(ctx, writeOp((*Record).Save, options), cb)
}

func writeOp(fn func(r *Record, ctx context.Context, options ...QueryOption) error, options []QueryOption) Op {
	return func(ctx context.Context, r *Record) (bool, error) {
		if err := fn(r, ctx, options...); err != nil {
			return false, err
		}
		return true, nil
	}
}
