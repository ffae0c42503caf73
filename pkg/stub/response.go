// Package stub describes synthetic HTTP responses: status, headers, a body
// source and the timing used to deliver it. A Response is immutable once
// built and can back any number of simulated deliveries.
package stub

import (
	"fmt"
	"net/http"
	"time"
)

const defaultStatusCode = http.StatusOK

// Options holds everything about a Response except its body.
type Options struct {
	// StatusCode defaults to 200 when zero.
	StatusCode int
	Header     http.Header
	// TimeToFirstByte is the delay before any byte is delivered. It must
	// not be negative.
	TimeToFirstByte time.Duration
	// Transfer defaults to an instant transfer.
	Transfer Transfer
}

// Response describes one simulated HTTP response.
type Response struct {
	statusCode int
	header     http.Header
	body       Body
	err        error
	ttfb       time.Duration
	transfer   Transfer
}

// New is the single construction path every factory goes through.
func New(body Body, opts Options) (*Response, error) {
	if opts.TimeToFirstByte < 0 {
		return nil, &ValidationError{Field: "time to first byte",
			Reason: fmt.Sprintf("must not be negative, got %v", opts.TimeToFirstByte)}
	}
	if err := opts.Transfer.validate(); err != nil {
		return nil, err
	}
	if err := body.validate(); err != nil {
		return nil, err
	}
	statusCode := opts.StatusCode
	if statusCode == 0 {
		statusCode = defaultStatusCode
	}
	if statusCode < 100 || statusCode > 999 {
		return nil, &ValidationError{Field: "status code",
			Reason: fmt.Sprintf("%d is not a three digit HTTP status", statusCode)}
	}
	return &Response{
		statusCode: statusCode,
		header:     normalizeHeader(opts.Header),
		body:       body,
		ttfb:       opts.TimeToFirstByte,
		transfer:   opts.Transfer,
	}, nil
}

func (r *Response) StatusCode() int {
	return r.statusCode
}

// Header returns a copy of the response headers.
func (r *Response) Header() http.Header {
	return r.header.Clone()
}

func (r *Response) Body() Body {
	return r.body
}

// Err is the simulated transport error, if any. When set, nothing else
// about the response is delivered.
func (r *Response) Err() error {
	return r.err
}

func (r *Response) TimeToFirstByte() time.Duration {
	return r.ttfb
}

func (r *Response) Transfer() Transfer {
	return r.transfer
}

// TransferDuration is the time spent delivering the body after the first
// byte is due.
func (r *Response) TransferDuration() time.Duration {
	if r.err != nil {
		return 0
	}
	return r.transfer.Duration(r.body.Size())
}

// TotalDuration is when the last byte is delivered, relative to the start.
func (r *Response) TotalDuration() time.Duration {
	return r.ttfb + r.TransferDuration()
}

func normalizeHeader(h http.Header) http.Header {
	res := http.Header{}
	for k, values := range h {
		for _, v := range values {
			res.Add(k, v)
		}
	}
	return res
}
