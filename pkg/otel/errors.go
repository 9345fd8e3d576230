package otel

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"railsim/pkg/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error type constants for structured error recording
const (
	ErrorTypeNetwork    = "network"
	ErrorTypeHTTP       = "http"
	ErrorTypeParse      = "parse"
	ErrorTypeValidation = "validation"
	ErrorTypeSource     = "source"
)

// RecordError records err on span with its type and transience and marks the
// span as failed.
func RecordError(span trace.Span, err error, errorType string, transient bool) {
	span.RecordError(err, trace.WithAttributes(
		attribute.String("error.type", errorType),
		attribute.Bool("error.transient", transient),
	))
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanOk(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// Classify maps a fleet source error onto one of the error types. Network
// failures and timeouts are transient, a rejected fleet is not; anything
// unrecognised is a source error.
func Classify(err error) (errorType string, transient bool) {
	var netErr net.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case err == nil:
		return "", false
	case errors.Is(err, types.ErrInvalidTrain):
		return ErrorTypeValidation, false
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return ErrorTypeNetwork, true
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return ErrorTypeParse, false
	default:
		return ErrorTypeSource, true
	}
}
