package app

import (
	"context"

	"github.com/go-playground/validator/v10"
)

type ctxKey string

const ctxValidated ctxKey = "geocontrol.validated"

// PassedValidation reports whether a use case was called through a validating decorator.
// Use it to guard against a wrong setup of dependencies.
func PassedValidation(ctx context.Context) bool {
	if v, ok := ctx.Value(ctxValidated).(bool); ok {
		return v
	}

	return false
}

func NewValidatedRequest[Req any, Res any](validate *validator.Validate, req Request[Req, Res]) Request[Req, Res] {
	return newValidatingDecorator(validate, req)
}

func NewValidatedCommand[C any](validate *validator.Validate, cmd Command[C]) Command[C] {
	return requestAsCommand[C]{base: newValidatingDecorator[C, struct{}](validate, commandAsRequest[C]{cmd})}
}

func NewValidatedQuery[Q any, Res any](validate *validator.Validate, query Query[Q, Res]) Query[Q, Res] {
	return newValidatingDecorator[Q, Res](validate, query)
}

func newValidatingDecorator[In any, Out any](validate *validator.Validate, base Request[In, Out]) *validatingDecorator[In, Out] {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &validatingDecorator[In, Out]{
		validate: validate,
		base:     base,
	}
}

type validatingDecorator[In any, Out any] struct {
	validate *validator.Validate
	base     Request[In, Out]
}

func (d *validatingDecorator[In, Out]) H(ctx context.Context, in In) (Out, error) { //nolint:ireturn // valid use of generics
	if err := d.validate.Struct(in); err != nil {
		return *new(Out), err //nolint:wrapcheck // validation error is returned on purpose
	}

	return d.base.H(context.WithValue(ctx, ctxValidated, true), in) //nolint:wrapcheck // decorate but not change anything
}
