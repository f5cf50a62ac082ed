package app

import (
	"context"
	"errors"
)

//
// This file contains convenience helpers you can use to easier test
// your calling code relying on this use case pattern.
//

var ErrUseCaseFailed = errors.New("usecase failed")

// TestRequestHandler returns a Request that calls fn.
// Use it to assert on the incoming request and to return a predefined result.
func TestRequestHandler[Req any, Res any](fn func(ctx context.Context, req Req) (Res, error)) Request[Req, Res] {
	return testHandler[Req, Res](fn)
}

// TestQueryHandler returns a Query that calls fn.
func TestQueryHandler[Q any, Res any](fn func(ctx context.Context, query Q) (Res, error)) Query[Q, Res] {
	return testHandler[Q, Res](fn)
}

// TestCommandHandler returns a Command that calls fn.
func TestCommandHandler[C any](fn func(ctx context.Context, cmd C) error) Command[C] {
	return requestAsCommand[C]{base: testHandler[C, struct{}](func(ctx context.Context, cmd C) (struct{}, error) {
		return struct{}{}, fn(ctx, cmd)
	})}
}

func TestSuccessRequestHandler[Req any, Res any]() Request[Req, Res] {
	return testHandler[Req, Res](func(context.Context, Req) (Res, error) { return *new(Res), nil })
}

func TestFailureRequestHandler[Req any, Res any]() Request[Req, Res] {
	return testHandler[Req, Res](func(context.Context, Req) (Res, error) { return *new(Res), ErrUseCaseFailed })
}

func TestSuccessCommandHandler[C any]() Command[C] {
	return TestCommandHandler(func(context.Context, C) error { return nil })
}

func TestFailureCommandHandler[C any]() Command[C] {
	return TestCommandHandler(func(context.Context, C) error { return ErrUseCaseFailed })
}

func TestSuccessQueryHandler[Q any, Res any]() Query[Q, Res] {
	return testHandler[Q, Res](func(context.Context, Q) (Res, error) { return *new(Res), nil })
}

func TestFailureQueryHandler[Q any, Res any]() Query[Q, Res] {
	return testHandler[Q, Res](func(context.Context, Q) (Res, error) { return *new(Res), ErrUseCaseFailed })
}

type testHandler[In any, Out any] func(ctx context.Context, in In) (Out, error)

func (h testHandler[In, Out]) H(ctx context.Context, in In) (Out, error) { //nolint:ireturn // valid use of generics
	return h(ctx, in)
}
