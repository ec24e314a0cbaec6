package ingestion

import "errors"

var (
	// ErrUnknownInstrument indicates a source was asked for an
	// instrument or pair it is not configured to serve.
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrMalformedPayload indicates a provider response that parsed as
	// transport but not as the expected document shape.
	ErrMalformedPayload = errors.New("malformed provider payload")
)
