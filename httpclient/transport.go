package httpclient

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -package=mock -source=transport.go -destination=mock/transport.go

var (
	ErrTimeout = errors.New("request timed out")
	ErrNetwork = errors.New("network error")
	ErrAborted = errors.New("request aborted")
)

// Request is a fully resolved request handed to a Transport.
// URL already carries the encoded query; Query is kept for transports that want the raw values.
type Request struct {
	URL             string
	Method          string
	Headers         map[string]string
	Query           map[string]any
	Body            any
	Timeout         time.Duration
	ResponseType    string
	WithCredentials bool
}

// Response is the raw result of a round trip.
// Any status code is a response; classifying it is up to the caller.
type Response struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
}

// Transport performs the network call for a request.
// It fails only when no response was received, with an error wrapping ErrTimeout, ErrAborted or ErrNetwork.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to Transport
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
