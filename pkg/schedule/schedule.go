// Package schedule turns a stub.Response into an ordered, lazy sequence of
// timed events: body chunks, or a single simulated failure. It computes
// when each event is due relative to the start of a delivery and never
// waits itself; the caller owns the clock.
package schedule

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hbagdi/hitstub/pkg/stub"
	"go.uber.org/multierr"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("schedule closed")

type Kind int

const (
	// KindChunk carries body bytes.
	KindChunk Kind = iota
	// KindFail is the simulated transport error of the response.
	KindFail
)

func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindFail:
		return "fail"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one scheduled emission. At is relative to the start of the
// delivery; the event must not be reported before then.
type Event struct {
	Kind  Kind
	Index int
	Data  []byte
	At    time.Duration
	Err   error
}

// Schedule is a single delivery of a response. It is not safe for
// concurrent use and can not be restarted; build a new one per delivery.
type Schedule struct {
	resp      *stub.Response
	chunkSize int64
	total     int64
	transfer  time.Duration
	n         int

	next     int
	read     int64
	reader   io.ReadCloser
	finished bool
	closed   bool
	err      error
}

// New validates chunkSize and returns the schedule of resp. No body bytes
// are read until the first call to Next.
func New(resp *stub.Response, chunkSize int) (*Schedule, error) {
	if resp == nil {
		return nil, &stub.ValidationError{Field: "response", Reason: "must not be nil"}
	}
	if chunkSize <= 0 {
		return nil, &stub.ValidationError{Field: "chunk size",
			Reason: fmt.Sprintf("must be positive, got %d", chunkSize)}
	}
	s := &Schedule{
		resp:      resp,
		chunkSize: int64(chunkSize),
	}
	if resp.Err() != nil {
		s.n = 1
		return s, nil
	}
	s.total = resp.Body().Size()
	s.transfer = resp.TransferDuration()
	s.n = chunkCount(s.total, s.chunkSize)
	return s, nil
}

func chunkCount(total, chunkSize int64) int {
	if total == 0 {
		return 1
	}
	return int((total + chunkSize - 1) / chunkSize)
}

// Len is the number of events the schedule produces when it completes.
func (s *Schedule) Len() int {
	return s.n
}

func (s *Schedule) TotalBytes() int64 {
	return s.total
}

func (s *Schedule) TransferDuration() time.Duration {
	return s.transfer
}

// Deadline is when the last event is due.
func (s *Schedule) Deadline() time.Duration {
	return s.at(s.n - 1)
}

// Times returns the due time of every event without reading the body.
func (s *Schedule) Times() []time.Duration {
	res := make([]time.Duration, s.n)
	for i := range res {
		res[i] = s.at(i)
	}
	return res
}

// at computes the absolute due time of event i from the start so that
// rounding never accumulates; the last event lands exactly on
// TTFB + transfer.
func (s *Schedule) at(i int) time.Duration {
	ttfb := s.resp.TimeToFirstByte()
	if s.resp.Err() != nil {
		return ttfb
	}
	if i >= s.n-1 {
		return ttfb + s.transfer
	}
	offset := time.Duration(float64(s.transfer) * float64(i+1) / float64(s.n))
	return ttfb + offset
}

// ChunkLen is the number of body bytes carried by event i.
func (s *Schedule) ChunkLen(i int) int64 {
	if s.resp.Err() != nil || i < 0 || i >= s.n {
		return 0
	}
	start := int64(i) * s.chunkSize
	remaining := s.total - start
	if remaining < s.chunkSize {
		return remaining
	}
	return s.chunkSize
}

// Next returns the next event. It returns io.EOF once the schedule is
// exhausted, ErrClosed after Close, and the same error again after a
// delivery failure such as a size mismatch.
func (s *Schedule) Next() (Event, error) {
	switch {
	case s.closed:
		return Event{}, ErrClosed
	case s.err != nil:
		return Event{}, s.err
	case s.finished:
		return Event{}, io.EOF
	}
	if err := s.resp.Err(); err != nil {
		s.finished = true
		return Event{Kind: KindFail, At: s.at(0), Err: err}, nil
	}

	i := s.next
	data, err := s.readChunk(i)
	if err != nil {
		return Event{}, s.fail(err)
	}
	s.next++
	if s.next == s.n {
		if err := s.finish(); err != nil {
			return Event{}, s.fail(err)
		}
	}
	return Event{Kind: KindChunk, Index: i, Data: data, At: s.at(i)}, nil
}

func (s *Schedule) readChunk(i int) ([]byte, error) {
	if s.reader == nil {
		r, err := s.resp.Body().Open()
		if err != nil {
			return nil, fmt.Errorf("open body: %w", err)
		}
		s.reader = r
	}
	data := make([]byte, s.ChunkLen(i))
	n, err := io.ReadFull(s.reader, data)
	s.read += int64(n)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return nil, &stub.SizeMismatchError{Declared: s.total, Actual: s.read}
	default:
		return nil, fmt.Errorf("read body: %w", err)
	}
}

// finish checks that the stream has nothing past the declared size and
// releases it.
func (s *Schedule) finish() error {
	var probe [1]byte
	n, err := io.ReadFull(s.reader, probe[:])
	if n > 0 {
		return &stub.SizeMismatchError{Declared: s.total, Actual: s.read + int64(n)}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read body: %w", err)
	}
	s.finished = true
	return s.release()
}

func (s *Schedule) fail(err error) error {
	s.err = multierr.Append(err, s.release())
	return s.err
}

func (s *Schedule) release() error {
	if s.reader == nil {
		return nil
	}
	r := s.reader
	s.reader = nil
	if err := r.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return nil
}

// Close abandons the delivery and releases the body stream. It is not an
// error to close an exhausted or failed schedule.
func (s *Schedule) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.release()
}

// All drains the schedule. It is a convenience for callers that do not
// care about timing.
func (s *Schedule) All() ([]Event, error) {
	var res []Event
	for {
		e, err := s.Next()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		res = append(res, e)
	}
}
