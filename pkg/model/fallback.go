package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/convo/pkg/logger"
)

// Route is one named entry of a Fallback chain.
type Route struct {
	Name  string
	Model Model
}

// Fallback tries each route in order and returns the first success. A route
// is skipped on transport errors and 5xx statuses; any other error, or a
// cancelled ctx, stops the chain. When every route fails the last error is
// returned unchanged.
type Fallback struct {
	routes []Route
	log    logrus.FieldLogger
}

// NewFallback builds a chain over routes. log may be nil.
func NewFallback(log logrus.FieldLogger, routes ...Route) *Fallback {
	if log == nil {
		log = logger.Discard()
	}
	return &Fallback{routes: routes, log: log}
}

// Generate implements Model.
func (f *Fallback) Generate(ctx context.Context, prompt string, p Params) (string, error) {
	if len(f.routes) == 0 {
		return "", fmt.Errorf("no models configured")
	}
	var lastErr error
	for i, r := range f.routes {
		text, err := r.Model.Generate(ctx, prompt, p)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) || i == len(f.routes)-1 {
			break
		}
		f.log.WithError(err).WithField("route", r.Name).Warn("model failed, trying next")
	}
	return "", lastErr
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError
	}
	return true
}
