package schedule

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hbagdi/hitstub/pkg/stub"
	"github.com/stretchr/testify/require"
)

func mustBytes(t *testing.T, b []byte, opts stub.Options) *stub.Response {
	t.Helper()
	res, err := stub.FromBytes(b, opts)
	require.NoError(t, err)
	return res
}

func concat(events []Event) []byte {
	var buf bytes.Buffer
	for _, e := range events {
		buf.Write(e.Data)
	}
	return buf.Bytes()
}

type trackingCloser struct {
	io.Reader
	closed int
}

func (c *trackingCloser) Close() error {
	c.closed++
	return nil
}

func streamResponse(t *testing.T, content []byte, declared int64) (*stub.Response, *[]*trackingCloser) {
	t.Helper()
	var opened []*trackingCloser
	open := func() (io.ReadCloser, error) {
		rc := &trackingCloser{Reader: bytes.NewReader(content)}
		opened = append(opened, rc)
		return rc, nil
	}
	res, err := stub.FromStream(open, declared, stub.Options{})
	require.NoError(t, err)
	return res, &opened
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, 1)
	require.ErrorIs(t, err, stub.ErrValidation)

	res := mustBytes(t, []byte("foo"), stub.Options{})
	_, err = New(res, 0)
	require.ErrorIs(t, err, stub.ErrValidation)
	_, err = New(res, -4)
	require.ErrorIs(t, err, stub.ErrValidation)
}

func TestScheduleFromBytes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		chunkSize int
		opts      stub.Options
		wantData  []string
		wantAt    []time.Duration
	}{
		{
			name:      "instant single chunk",
			body:      "hello",
			chunkSize: 1024,
			wantData:  []string{"hello"},
			wantAt:    []time.Duration{0},
		},
		{
			name:      "evenly spread over a fixed duration",
			body:      "abcdefgh",
			chunkSize: 2,
			opts: stub.Options{
				TimeToFirstByte: time.Second,
				Transfer:        stub.FixedDuration(4 * time.Second),
			},
			wantData: []string{"ab", "cd", "ef", "gh"},
			wantAt: []time.Duration{
				2 * time.Second, 3 * time.Second, 4 * time.Second, 5 * time.Second,
			},
		},
		{
			name:      "short last chunk",
			body:      "abcde",
			chunkSize: 2,
			opts:      stub.Options{Transfer: stub.FixedDuration(3 * time.Second)},
			wantData:  []string{"ab", "cd", "e"},
			wantAt:    []time.Duration{time.Second, 2 * time.Second, 3 * time.Second},
		},
		{
			name:      "empty body emits one empty chunk at the first byte",
			body:      "",
			chunkSize: 16,
			opts: stub.Options{
				TimeToFirstByte: 300 * time.Millisecond,
				Transfer:        stub.FixedDuration(time.Hour),
			},
			wantData: []string{""},
			wantAt:   []time.Duration{300 * time.Millisecond},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(mustBytes(t, []byte(tt.body), tt.opts), tt.chunkSize)
			require.NoError(t, err)
			require.Equal(t, len(tt.wantData), s.Len())
			require.Equal(t, tt.wantAt, s.Times())

			events, err := s.All()
			require.NoError(t, err)
			require.Len(t, events, len(tt.wantData))
			for i, e := range events {
				require.Equal(t, KindChunk, e.Kind)
				require.Equal(t, i, e.Index)
				require.Equal(t, tt.wantData[i], string(e.Data))
				require.Equal(t, tt.wantAt[i], e.At)
			}
			_, err = s.Next()
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestScheduleRate(t *testing.T) {
	res := mustBytes(t, make([]byte, 4096), stub.Options{
		TimeToFirstByte: 50 * time.Millisecond,
		Transfer:        stub.Rate(2),
	})
	s, err := New(res, 1024)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, s.TransferDuration())
	require.Equal(t, 2050*time.Millisecond, s.Deadline())
	require.Equal(t, []time.Duration{
		550 * time.Millisecond,
		1050 * time.Millisecond,
		1550 * time.Millisecond,
		2050 * time.Millisecond,
	}, s.Times())
}

func TestScheduleSimulatedError(t *testing.T) {
	offline := errors.New("offline")
	res, err := stub.FromErrorAfter(offline, 3*time.Second)
	require.NoError(t, err)
	s, err := New(res, 8)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	events, err := s.All()
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, KindFail, events[0].Kind)
	require.Equal(t, offline, events[0].Err)
	require.Equal(t, 3*time.Second, events[0].At)
	require.Empty(t, events[0].Data)
}

func TestScheduleIsPerDelivery(t *testing.T) {
	res := mustBytes(t, []byte("reusable"), stub.Options{})
	for i := 0; i < 3; i++ {
		s, err := New(res, 3)
		require.NoError(t, err)
		events, err := s.All()
		require.NoError(t, err)
		require.Equal(t, "reusable", string(concat(events)))
	}
}

func TestScheduleStream(t *testing.T) {
	t.Run("exact size closes the stream at the end", func(t *testing.T) {
		res, opened := streamResponse(t, []byte("0123456789"), 10)
		s, err := New(res, 4)
		require.NoError(t, err)
		require.Empty(t, *opened, "nothing is read before the first event")

		events, err := s.All()
		require.NoError(t, err)
		require.Equal(t, "0123456789", string(concat(events)))
		require.Len(t, *opened, 1)
		require.Equal(t, 1, (*opened)[0].closed)
		require.NoError(t, s.Close())
		require.Equal(t, 1, (*opened)[0].closed)
	})
	t.Run("short stream", func(t *testing.T) {
		res, opened := streamResponse(t, []byte("0123456"), 10)
		s, err := New(res, 4)
		require.NoError(t, err)

		e, err := s.Next()
		require.NoError(t, err)
		require.Equal(t, "0123", string(e.Data))

		_, err = s.Next()
		require.ErrorIs(t, err, stub.ErrSizeMismatch)
		var mismatch *stub.SizeMismatchError
		require.True(t, errors.As(err, &mismatch))
		require.Equal(t, int64(10), mismatch.Declared)
		require.Equal(t, int64(7), mismatch.Actual)
		require.Equal(t, 1, (*opened)[0].closed)

		_, err = s.Next()
		require.ErrorIs(t, err, stub.ErrSizeMismatch)
	})
	t.Run("long stream fails before the last chunk", func(t *testing.T) {
		res, opened := streamResponse(t, []byte("0123456789xx"), 10)
		s, err := New(res, 4)
		require.NoError(t, err)
		events, err := s.All()
		require.ErrorIs(t, err, stub.ErrSizeMismatch)
		require.Len(t, events, 2)
		require.Equal(t, "01234567", string(concat(events)))
		require.Equal(t, 1, (*opened)[0].closed)
	})
	t.Run("cancel releases the stream", func(t *testing.T) {
		res, opened := streamResponse(t, []byte("0123456789"), 10)
		s, err := New(res, 4)
		require.NoError(t, err)
		_, err = s.Next()
		require.NoError(t, err)
		require.NoError(t, s.Close())
		require.Equal(t, 1, (*opened)[0].closed)

		_, err = s.Next()
		require.ErrorIs(t, err, ErrClosed)
	})
	t.Run("each delivery opens its own stream", func(t *testing.T) {
		res, opened := streamResponse(t, []byte("abc"), 3)
		for i := 0; i < 2; i++ {
			s, err := New(res, 1)
			require.NoError(t, err)
			events, err := s.All()
			require.NoError(t, err)
			require.Equal(t, "abc", string(concat(events)))
		}
		require.Len(t, *opened, 2)
	})
}

func TestScheduleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	content := bytes.Repeat([]byte("hitstub"), 100)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	res, err := stub.FromFilePath(path, stub.Options{Transfer: stub.FixedDuration(time.Second)})
	require.NoError(t, err)

	s, err := New(res, 64)
	require.NoError(t, err)
	events, err := s.All()
	require.NoError(t, err)
	require.Equal(t, content, concat(events))
	require.Equal(t, time.Second, events[len(events)-1].At)

	t.Run("file removed before the first read", func(t *testing.T) {
		require.NoError(t, os.Remove(path))
		s, err := New(res, 64)
		require.NoError(t, err)
		_, err = s.Next()
		require.ErrorIs(t, err, stub.ErrResourceNotFound)
	})
}
