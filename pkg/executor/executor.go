package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hbagdi/hitstub/pkg/builder"
	"github.com/hbagdi/hitstub/pkg/model"
	"github.com/hbagdi/hitstub/pkg/parser"
	"github.com/hbagdi/hitstub/pkg/schedule"
	"github.com/hbagdi/hitstub/pkg/stub"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	defaultChunkSize = 1024
	filePattern      = "*.stub.yaml"
)

// Recorder persists delivered hits.
type Recorder interface {
	Save(ctx context.Context, hit model.Hit) error
}

type Executor struct {
	files  []parser.File
	global parser.Global
	dir    string

	clock    Clock
	recorder Recorder
	logger   *zap.Logger
}

type Opts struct {
	// Dir holds the stub definition files, defaults to the working
	// directory.
	Dir      string
	Clock    Clock
	Recorder Recorder
	Logger   *zap.Logger
}

func NewExecutor(opts *Opts) (*Executor, error) {
	e := &Executor{
		dir:    ".",
		clock:  RealClock,
		logger: zap.NewNop(),
	}
	if opts != nil {
		if opts.Dir != "" {
			e.dir = opts.Dir
		}
		if opts.Clock != nil {
			e.clock = opts.Clock
		}
		if opts.Logger != nil {
			e.logger = opts.Logger
		}
		e.recorder = opts.Recorder
	}
	return e, nil
}

func (e *Executor) LoadFiles() error {
	files, err := loadFiles(e.dir)
	if err != nil {
		return err
	}
	e.files = files

	global, err := fetchGlobal(e.files)
	if err != nil {
		return err
	}
	e.global = global
	return nil
}

func fetchGlobal(files []parser.File) (parser.Global, error) {
	var res parser.Global
	for _, file := range files {
		if file.Global.Version != 0 && file.Global.Version != 1 {
			return parser.Global{},
				fmt.Errorf("invalid stub file version '%v'", file.Global.Version)
		}
		if file.Global.Version == 1 {
			res.Version = 1
		}
		if res.ChunkSize == 0 && file.Global.ChunkSize != 0 {
			res.ChunkSize = file.Global.ChunkSize
		}
		if res.TTFB == "" && file.Global.TTFB != "" {
			res.TTFB = file.Global.TTFB
		}
	}
	if res.Version != 1 {
		return parser.Global{}, fmt.Errorf("no global.version")
	}
	if res.ChunkSize < 0 {
		return parser.Global{}, fmt.Errorf("invalid global.chunk_size '%v'", res.ChunkSize)
	}
	if res.ChunkSize == 0 {
		res.ChunkSize = defaultChunkSize
	}
	return res, nil
}

func loadFiles(dir string) ([]parser.File, error) {
	filenames, err := filepath.Glob(filepath.Join(dir, filePattern))
	if err != nil {
		return nil, fmt.Errorf("list stub files: %v", err)
	}

	res := make([]parser.File, 0, len(filenames))
	for _, filename := range filenames {
		parsedFile, err := parser.Parse(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to parse '%v': %v", filename, err)
		}
		res = append(res, parsedFile)
	}
	return res, nil
}

func (e *Executor) fetchStub(id string) (parser.Stub, parser.File, error) {
	for _, file := range e.files {
		for _, s := range file.Stubs {
			if s.ID == id {
				return s, file, nil
			}
		}
	}
	return parser.Stub{}, parser.File{}, fmt.Errorf("stub '%v' not found", id)
}

// Stub is a built descriptor ready to be delivered.
type Stub struct {
	ID        string
	ChunkSize int
	Response  *stub.Response
}

func (e *Executor) BuildStub(id string) (*Stub, error) {
	def, file, err := e.fetchStub(id)
	if err != nil {
		return nil, err
	}
	resp, err := builder.Build(def, builder.Options{
		GlobalContext: e.global,
		Dir:           file.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build stub '%v': %w", id, err)
	}
	return &Stub{ID: id, ChunkSize: e.global.ChunkSize, Response: resp}, nil
}

// Schedule computes the delivery schedule of s without playing it.
func (e *Executor) Schedule(s *Stub) (*schedule.Schedule, error) {
	return schedule.New(s.Response, s.ChunkSize)
}

// Execute delivers s in real time according to the executor's clock,
// writing body chunks to w as they become due. The resulting hit is
// recorded when a Recorder is configured.
func (e *Executor) Execute(ctx context.Context, s *Stub, w io.Writer) (hit model.Hit, err error) {
	sched, err := e.Schedule(s)
	if err != nil {
		return model.Hit{}, err
	}
	defer func() {
		err = multierr.Append(err, sched.Close())
	}()

	resp := s.Response
	start := e.clock.Now()
	hit = model.Hit{
		StubID:    s.ID,
		CreatedAt: start.Unix(),
		Timing: model.Timing{
			TTFB:     resp.TimeToFirstByte(),
			Transfer: sched.TransferDuration(),
		},
	}
	if resp.Err() == nil {
		hit.Response = model.Response{
			Proto:  model.DefaultProto,
			Code:   resp.StatusCode(),
			Status: model.Status(resp.StatusCode()),
			Header: resp.Header(),
		}
	}

	logger := e.logger.With(zap.String("stub", s.ID))
	logger.Debug("delivery started",
		zap.Duration("ttfb", resp.TimeToFirstByte()),
		zap.Duration("transfer", sched.TransferDuration()),
		zap.Int("chunks", sched.Len()))

	var body []byte
	for {
		event, err := sched.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Hit{}, fmt.Errorf("deliver stub '%v': %w", s.ID, err)
		}
		if err := e.clock.WaitUntil(ctx, start.Add(event.At)); err != nil {
			logger.Debug("delivery cancelled", zap.Int("chunk", event.Index))
			return model.Hit{}, err
		}
		if event.Kind == schedule.KindFail {
			hit.Error = event.Err.Error()
			logger.Debug("delivered simulated error", zap.Error(event.Err))
			break
		}
		hit.Timing.Chunks++
		body = append(body, event.Data...)
		if w != nil {
			if _, err := w.Write(event.Data); err != nil {
				return model.Hit{}, fmt.Errorf("write chunk %d: %w", event.Index, err)
			}
		}
	}
	hit.Response.Body = body
	hit.Timing.Elapsed = e.clock.Now().Sub(start)
	logger.Debug("delivery finished", zap.Duration("elapsed", hit.Timing.Elapsed))

	if e.recorder != nil {
		if err := e.recorder.Save(ctx, hit); err != nil {
			return model.Hit{}, fmt.Errorf("save hit: %v", err)
		}
	}
	return hit, nil
}

func (e *Executor) Close() error {
	return nil
}

func (e *Executor) AllStubIDs() ([]string, error) {
	var ids []string
	for _, f := range e.files {
		for _, s := range f.Stubs {
			ids = append(ids, "@"+s.ID)
		}
	}
	return ids, nil
}
