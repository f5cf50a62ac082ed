// Package jobs runs recurring background work, like purging expired cache entries.
//
// A Job is any struct. Its handler is registered with RegisterJobFunc as
// func(context.Context, YourJob) error and is called every time a Schedule fires.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fatih/camelcase"
)

var (
	ErrInvalidJobType = errors.New("invalid job type")
	ErrInvalidJobFunc = errors.New("invalid job func")
	ErrScheduleFailed = errors.New("could not schedule job")
	ErrNotRegistered  = errors.New("no job func registered")
)

type (
	// Job is the payload passed to its JobFunc.
	Job any

	// JobFunc is a func(context.Context, J) error, with J being a struct.
	JobFunc any
)

// Scheduler runs Jobs on cron schedules.
type Scheduler interface {
	RegisterJobFunc(jf JobFunc) error
	Schedule(schedule string, job Job) error
	Shutdown(ctx context.Context) error
}

// jobType returns the name used to match a Job with its JobFunc.
func jobType(job Job) (string, error) {
	t := reflect.TypeOf(job)
	if t == nil || t.Kind() != reflect.Struct {
		return "", fmt.Errorf("%w: job has to be a struct", ErrInvalidJobType)
	}

	return t.PkgPath() + "." + t.Name(), nil
}

// jobName returns a readable name of job, e.g. purge_expired_countries.
func jobName(job Job) string {
	t := reflect.TypeOf(job)
	if t == nil {
		return ""
	}

	return strings.ToLower(strings.Join(camelcase.Split(t.Name()), "_"))
}

// jobFuncType validates jf and returns the name of the Job it handles.
func jobFuncType(jf JobFunc) (string, error) {
	t := reflect.TypeOf(jf)
	if t == nil || t.Kind() != reflect.Func {
		return "", fmt.Errorf("%w: not a func", ErrInvalidJobFunc)
	}

	ctxType := reflect.TypeOf((*context.Context)(nil)).Elem()
	errType := reflect.TypeOf((*error)(nil)).Elem()

	const numIn = 2
	if t.NumIn() != numIn || t.In(0) != ctxType || t.NumOut() != 1 || t.Out(0) != errType {
		return "", fmt.Errorf("%w: expected func(context.Context, Job) error", ErrInvalidJobFunc)
	}

	if t.In(1).Kind() != reflect.Struct {
		return "", fmt.Errorf("%w: job has to be a struct", ErrInvalidJobFunc)
	}

	return t.In(1).PkgPath() + "." + t.In(1).Name(), nil
}

func callJobFunc(ctx context.Context, jf JobFunc, job Job) error {
	out := reflect.ValueOf(jf).Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(job)})

	if err, ok := out[0].Interface().(error); ok && err != nil {
		return err
	}

	return nil
}
