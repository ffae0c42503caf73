package stub

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

type bodyKind int

const (
	bodyAbsent bodyKind = iota
	bodyBytes
	bodyStream
)

// Opener returns a fresh reader over a stream body. It is called once per
// delivery so that concurrent deliveries never share a cursor.
type Opener func() (io.ReadCloser, error)

// Body is the payload of a Response: in-memory bytes, a stream with a
// declared size, or nothing at all.
type Body struct {
	kind bodyKind
	data []byte
	open Opener
	size int64
	path string
}

// BytesBody returns a Body backed by b. b is copied.
func BytesBody(b []byte) Body {
	data := make([]byte, len(b))
	copy(data, b)
	return Body{kind: bodyBytes, data: data, size: int64(len(data))}
}

// StreamBody returns a Body read through open, which must yield exactly
// size bytes.
func StreamBody(open Opener, size int64) Body {
	return Body{kind: bodyStream, open: open, size: size}
}

// FileBody stats path and returns a stream Body of its current size. The
// file itself is opened lazily, once per delivery.
func FileBody(path string) (Body, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Body{}, &ResourceNotFoundError{Path: path, Err: err}
	}
	if info.IsDir() {
		return Body{}, &ResourceNotFoundError{Path: path, Err: fmt.Errorf("is a directory")}
	}
	open := func() (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, &ResourceNotFoundError{Path: path, Err: err}
		}
		return f, nil
	}
	return Body{kind: bodyStream, open: open, size: info.Size(), path: path}, nil
}

func (b Body) IsAbsent() bool {
	return b.kind == bodyAbsent
}

func (b Body) IsStream() bool {
	return b.kind == bodyStream
}

// Size is the number of bytes the body holds or declares.
func (b Body) Size() int64 {
	return b.size
}

// Path is the file backing the body, if any.
func (b Body) Path() string {
	return b.path
}

// Bytes returns a copy of an in-memory body, nil otherwise.
func (b Body) Bytes() []byte {
	if b.kind != bodyBytes {
		return nil
	}
	res := make([]byte, len(b.data))
	copy(res, b.data)
	return res
}

// Open returns a new reader over the body. An absent body reads as empty.
func (b Body) Open() (io.ReadCloser, error) {
	switch b.kind {
	case bodyBytes:
		return io.NopCloser(bytes.NewReader(b.data)), nil
	case bodyStream:
		return b.open()
	default:
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
}

func (b Body) validate() error {
	if b.kind != bodyStream {
		return nil
	}
	if b.open == nil {
		return &ValidationError{Field: "body", Reason: "stream body without an opener"}
	}
	if b.size < 0 {
		return &ValidationError{Field: "body", Reason: fmt.Sprintf("negative declared size %d", b.size)}
	}
	return nil
}
