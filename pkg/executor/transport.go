package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hbagdi/hitstub/pkg/model"
	"github.com/hbagdi/hitstub/pkg/schedule"
	"github.com/hbagdi/hitstub/pkg/stub"
)

// Transport is an http.RoundTripper that answers every request with the
// same stubbed response, honoring its timing. Headers are returned once the
// first byte is due and the body blocks until each chunk is due.
type Transport struct {
	Response  *stub.Response
	ChunkSize int
	// Clock defaults to RealClock.
	Clock Clock
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Response == nil {
		return nil, fmt.Errorf("no stubbed response")
	}
	clock := t.Clock
	if clock == nil {
		clock = RealClock
	}
	chunkSize := t.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}
	sched, err := schedule.New(t.Response, chunkSize)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()
	start := clock.Now()
	if err := clock.WaitUntil(ctx, start.Add(t.Response.TimeToFirstByte())); err != nil {
		_ = sched.Close()
		return nil, err
	}
	if simulated := t.Response.Err(); simulated != nil {
		_ = sched.Close()
		return nil, simulated
	}

	code := t.Response.StatusCode()
	return &http.Response{
		Status:        model.Status(code),
		StatusCode:    code,
		Proto:         model.DefaultProto,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        t.Response.Header(),
		ContentLength: sched.TotalBytes(),
		Body: &timedBody{
			ctx:   ctx,
			sched: sched,
			clock: clock,
			start: start,
		},
		Request: req,
	}, nil
}

// timedBody reads a schedule, blocking until each chunk is due.
type timedBody struct {
	ctx   context.Context
	sched *schedule.Schedule
	clock Clock
	start time.Time
	buf   []byte
	err   error
}

func (b *timedBody) Read(p []byte) (int, error) {
	for len(b.buf) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		event, err := b.sched.Next()
		if err != nil {
			b.err = err
			if errors.Is(err, schedule.ErrClosed) {
				b.err = io.ErrClosedPipe
			}
			continue
		}
		if err := b.clock.WaitUntil(b.ctx, b.start.Add(event.At)); err != nil {
			b.err = err
			_ = b.sched.Close()
			continue
		}
		b.buf = event.Data
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	return n, nil
}

func (b *timedBody) Close() error {
	return b.sched.Close()
}
