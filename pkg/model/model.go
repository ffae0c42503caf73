package model

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultProto is the protocol reported for every delivered response.
const DefaultProto = "HTTP/1.1"

// Hit is the record of one simulated delivery of a stub.
type Hit struct {
	ID        int
	StubID    string
	CreatedAt int64
	Response  Response
	Timing    Timing
	// Error is the simulated transport error delivered instead of a
	// response, if any.
	Error string
}

type Response struct {
	Proto  string
	Code   int
	Status string
	Header http.Header
	Body   []byte
}

type Timing struct {
	TTFB     time.Duration
	Transfer time.Duration
	Chunks   int
	// Elapsed is the wall-clock time the delivery took.
	Elapsed time.Duration
}

// Failed reports whether the hit delivered a simulated error.
func (h Hit) Failed() bool {
	return h.Error != ""
}

// Status renders code the way net/http reports a response status.
func Status(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return fmt.Sprintf("%d", code)
	}
	return fmt.Sprintf("%d %s", code, text)
}
