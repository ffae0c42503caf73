package executor

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hbagdi/hitstub/pkg/model"
	"github.com/hbagdi/hitstub/pkg/parser"
	"github.com/hbagdi/hitstub/pkg/stub"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"
)

const stubFile = `
global:
  version: 1
  chunk_size: 4
stubs:
  - id: users
    ttfb: 1s
    duration: 2s
    body_encoding: y2j
    body: |
      users: [a, b]
  - id: slow-text
    ttfb: 100ms
    rate: 1
    body: "12345678"
  - id: offline
    ttfb: 500ms
    error: not connected to the internet
`

var epoch = time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)

type memRecorder struct {
	hits []model.Hit
}

func (r *memRecorder) Save(_ context.Context, hit model.Hit) error {
	r.hits = append(r.hits, hit)
	return nil
}

func testExecutor(t *testing.T, clock Clock, recorder Recorder) *Executor {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "api.stub.yaml"), []byte(stubFile), 0o600))
	e, err := NewExecutor(&Opts{
		Dir:      dir,
		Clock:    clock,
		Recorder: recorder,
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	require.NoError(t, e.LoadFiles())
	return e
}

func TestExecute(t *testing.T) {
	clock := NewVirtualClock(epoch)
	recorder := &memRecorder{}
	e := testExecutor(t, clock, recorder)
	defer e.Close()

	t.Run("delivers the body on schedule", func(t *testing.T) {
		s, err := e.BuildStub("users")
		require.NoError(t, err)
		require.Equal(t, 4, s.ChunkSize)

		var out bytes.Buffer
		hit, err := e.Execute(context.Background(), s, &out)
		require.NoError(t, err)
		require.Equal(t, `{"users":["a","b"]}`, out.String())
		require.Equal(t, out.Bytes(), hit.Response.Body)
		require.Equal(t, http.StatusOK, hit.Response.Code)
		require.Equal(t, "200 OK", hit.Response.Status)
		require.Equal(t, "application/json", hit.Response.Header.Get("content-type"))
		require.Equal(t, "b", gjson.GetBytes(hit.Response.Body, "users.1").String())
		require.Equal(t, 5, hit.Timing.Chunks)
		require.Equal(t, 3*time.Second, hit.Timing.Elapsed)
		require.False(t, hit.Failed())

		waits := clock.Waits()
		require.Len(t, waits, 5)
		require.Equal(t, epoch.Add(3*time.Second), waits[len(waits)-1])
	})
	t.Run("simulated error", func(t *testing.T) {
		s, err := e.BuildStub("offline")
		require.NoError(t, err)
		hit, err := e.Execute(context.Background(), s, nil)
		require.NoError(t, err)
		require.True(t, hit.Failed())
		require.Equal(t, "not connected to the internet", hit.Error)
		require.Zero(t, hit.Response.Code)
		require.Empty(t, hit.Response.Body)
		require.Equal(t, 0, hit.Timing.Chunks)
		require.Equal(t, 500*time.Millisecond, hit.Timing.Elapsed)
	})
	t.Run("hits are recorded", func(t *testing.T) {
		require.Len(t, recorder.hits, 2)
		require.Equal(t, "users", recorder.hits[0].StubID)
		require.Equal(t, "offline", recorder.hits[1].StubID)
	})
	t.Run("non existent stub errors", func(t *testing.T) {
		s, err := e.BuildStub("does-not-exist")
		require.Nil(t, s)
		require.EqualError(t, err, "stub 'does-not-exist' not found")
	})
	t.Run("cancelled delivery is not recorded", func(t *testing.T) {
		before := len(recorder.hits)
		s, err := e.BuildStub("users")
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = e.Execute(ctx, s, io.Discard)
		require.ErrorIs(t, err, context.Canceled)
		require.Len(t, recorder.hits, before)
	})
}

func TestAllStubIDs(t *testing.T) {
	e := testExecutor(t, nil, nil)
	ids, err := e.AllStubIDs()
	require.NoError(t, err)
	require.Equal(t, []string{"@users", "@slow-text", "@offline"}, ids)
}

func TestFetchGlobal(t *testing.T) {
	tests := []struct {
		name    string
		files   []parser.File
		want    parser.Global
		wantErr string
	}{
		{
			name:  "chunk size defaults",
			files: []parser.File{{Global: parser.Global{Version: 1}}},
			want:  parser.Global{Version: 1, ChunkSize: defaultChunkSize},
		},
		{
			name: "first non-empty value wins",
			files: []parser.File{
				{},
				{Global: parser.Global{Version: 1, ChunkSize: 16, TTFB: "1s"}},
				{Global: parser.Global{ChunkSize: 32, TTFB: "2s"}},
			},
			want: parser.Global{Version: 1, ChunkSize: 16, TTFB: "1s"},
		},
		{
			name:    "no version",
			files:   []parser.File{{}},
			wantErr: "no global.version",
		},
		{
			name:    "bad version",
			files:   []parser.File{{Global: parser.Global{Version: 2}}},
			wantErr: "invalid stub file version '2'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fetchGlobal(tt.files)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTransport(t *testing.T) {
	t.Run("body is delivered through an http client", func(t *testing.T) {
		resp, err := stub.FromBytes([]byte("hello, world"), stub.Options{
			StatusCode:      http.StatusCreated,
			Header:          http.Header{"X-Test": {"yes"}},
			TimeToFirstByte: 200 * time.Millisecond,
			Transfer:        stub.FixedDuration(time.Second),
		})
		require.NoError(t, err)
		clock := NewVirtualClock(epoch)
		client := &http.Client{Transport: &Transport{Response: resp, ChunkSize: 5, Clock: clock}}

		res, err := client.Get("http://stub.invalid/anything")
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusCreated, res.StatusCode)
		require.Equal(t, "201 Created", res.Status)
		require.Equal(t, "yes", res.Header.Get("x-test"))
		require.Equal(t, int64(12), res.ContentLength)

		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		require.Equal(t, "hello, world", string(body))
		require.Equal(t, epoch.Add(1200*time.Millisecond), clock.Now())
	})
	t.Run("simulated error fails the round trip", func(t *testing.T) {
		resp, err := stub.FromErrorAfter(io.ErrUnexpectedEOF, time.Second)
		require.NoError(t, err)
		clock := NewVirtualClock(epoch)
		client := &http.Client{Transport: &Transport{Response: resp, Clock: clock}}

		res, err := client.Get("http://stub.invalid/")
		require.Nil(t, res)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		require.Equal(t, epoch.Add(time.Second), clock.Now())
	})
	t.Run("closing the body cancels the delivery", func(t *testing.T) {
		resp, err := stub.FromBytes(bytes.Repeat([]byte("x"), 100), stub.Options{})
		require.NoError(t, err)
		rt := &Transport{Response: resp, ChunkSize: 10, Clock: NewVirtualClock(epoch)}
		req, err := http.NewRequest(http.MethodGet, "http://stub.invalid/", nil)
		require.NoError(t, err)
		res, err := rt.RoundTrip(req)
		require.NoError(t, err)

		buf := make([]byte, 10)
		n, err := res.Body.Read(buf)
		require.NoError(t, err)
		require.Equal(t, 10, n)
		require.NoError(t, res.Body.Close())
		_, err = res.Body.Read(buf)
		require.ErrorIs(t, err, io.ErrClosedPipe)
	})
}
