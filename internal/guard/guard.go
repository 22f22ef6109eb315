// Package guard runs fallible operations and routes their failures to the
// alert channel.
package guard

import (
	"context"

	log "github.com/sirupsen/logrus"

	"go-fed-dashboard/internal/alert"
	"go-fed-dashboard/internal/errchain"
)

// DefaultTitle is used when no title is given.
const DefaultTitle = "Error"

type options struct {
	title     string
	passError bool
}

// Option configures Run and Do.
type Option func(*options)

// WithTitle sets the alert title.
func WithTitle(title string) Option {
	return func(o *options) {
		if title != "" {
			o.title = title
		}
	}
}

// WithPassError makes Run return the failure to the caller after alerting.
func WithPassError() Option {
	return func(o *options) {
		o.passError = true
	}
}

// Run executes op. On success its result is returned and nothing is
// dispatched. On failure exactly one openErrorAlert is dispatched to d; the
// error is then swallowed (zero value, nil) unless WithPassError was given.
//
// A panic carrying an error is treated like a returned error. Any other panic
// value is logged and swallowed without an alert.
func Run[T any](ctx context.Context, d alert.Dispatcher, op func(context.Context) (T, error), opts ...Option) (result T, err error) {
	o := options{title: DefaultTitle}
	for _, opt := range opts {
		opt(&o)
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var zero T
		perr, ok := r.(error)
		if !ok {
			log.WithFields(log.Fields{"title": o.title, "value": r}).
				Error("Guarded operation panicked with a non-error value")
			result, err = zero, nil
			return
		}
		result, err = zero, fail(d, o, perr)
	}()

	res, opErr := op(ctx)
	if opErr != nil {
		var zero T
		return zero, fail(d, o, opErr)
	}
	return res, nil
}

// Do is Run for operations without a result.
func Do(ctx context.Context, d alert.Dispatcher, op func(context.Context) error, opts ...Option) error {
	_, err := Run(ctx, d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

func fail(d alert.Dispatcher, o options, err error) error {
	log.WithError(err).WithField("title", o.title).Error("Guarded operation failed")

	if d != nil {
		open := alert.OpenErrorAlert(o.title, errchain.Format(err), nil)
		id := open.Payload.ID
		open.Payload.OnClose = func() {
			d.Dispatch(alert.CloseAlertID(id))
		}
		d.Dispatch(open)
	} else {
		log.WithField("title", o.title).Warn("No alert dispatcher; failure not surfaced")
	}

	if o.passError {
		return err
	}
	return nil
}
