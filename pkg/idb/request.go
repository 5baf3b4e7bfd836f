package idb

import (
	"context"
	"sync"
)

// Request is the pending result of one operation.
type Request struct {
	done chan struct{}
	once sync.Once

	result any
	err    error
}

func newRequest() *Request {
	return &Request{done: make(chan struct{})}
}

// failedRequest returns a request that has already failed with err.
func failedRequest(err error) *Request {
	r := newRequest()
	r.finish(nil, err)
	return r
}

func (r *Request) finish(result any, err error) {
	r.once.Do(func() {
		r.result, r.err = result, err
		close(r.done)
	})
}

// Done is closed once the request has a result.
func (r *Request) Done() <-chan struct{} { return r.done }

// Wait blocks until the request completes or ctx is done. A cancelled ctx
// only abandons the wait: the request itself keeps running and its
// transaction still commits or aborts as it would have.
func (r *Request) Wait(ctx context.Context) (any, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome of a completed request. It fails with
// InvalidStateError while the request is still pending.
func (r *Request) Result() (any, error) {
	select {
	case <-r.done:
		return r.result, r.err
	default:
		return nil, newError(NameInvalidState, "request is still pending")
	}
}

// FailedRequest returns a completed request carrying err. It lets callers
// composing requests report their own validation failures uniformly.
func FailedRequest(err error) *Request {
	return failedRequest(err)
}
