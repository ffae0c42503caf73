package stub

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/hbagdi/hitstub/pkg/parser"
)

const (
	headerContentType = "Content-Type"
	mimeJSON          = "application/json"
	responseFileExt   = ".response"
)

// FromBytes builds a response with an in-memory body.
func FromBytes(b []byte, opts Options) (*Response, error) {
	return New(BytesBody(b), opts)
}

// FromStream builds a response whose body is read through open and must
// yield exactly size bytes.
func FromStream(open Opener, size int64, opts Options) (*Response, error) {
	return New(StreamBody(open, size), opts)
}

// FromJSONValue encodes v as JSON. A Content-Type of application/json is
// added unless opts.Header already carries one.
func FromJSONValue(v interface{}, opts Options) (*Response, error) {
	js, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	header := normalizeHeader(opts.Header)
	if header.Get(headerContentType) == "" {
		header.Set(headerContentType, mimeJSON)
	}
	opts.Header = header
	return FromBytes(js, opts)
}

// FromFilePath streams the body from the file at path.
func FromFilePath(path string, opts Options) (*Response, error) {
	body, err := FileBody(path)
	if err != nil {
		return nil, err
	}
	return New(body, opts)
}

// FromHTTPMessageDump builds a response from a raw message such as the
// output of `curl -is`: a status line, headers, a blank line and the body.
func FromHTTPMessageDump(raw []byte, ttfb time.Duration, transfer Transfer) (*Response, error) {
	dump, err := parser.ParseResponseDump(raw)
	if err != nil {
		if errors.Is(err, parser.ErrNoHeaderSeparator) {
			return nil, &MalformedMessageError{Reason: err.Error()}
		}
		return nil, err
	}
	return FromBytes(dump.Body, Options{
		StatusCode:      dump.StatusCode,
		Header:          dump.Header,
		TimeToFirstByte: ttfb,
		Transfer:        transfer,
	})
}

// FromNamedResponse reads "<name>.response" from fsys and parses it as an
// HTTP message dump.
func FromNamedResponse(fsys fs.FS, name string, ttfb time.Duration,
	transfer Transfer,
) (*Response, error) {
	filename := name + responseFileExt
	raw, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return nil, &ResourceNotFoundError{Path: filename, Err: err}
	}
	return FromHTTPMessageDump(raw, ttfb, transfer)
}

// FromError builds a response that fails with err instead of delivering
// anything.
func FromError(err error) (*Response, error) {
	return FromErrorAfter(err, 0)
}

// FromErrorAfter is FromError with the failure reported after ttfb.
func FromErrorAfter(err error, ttfb time.Duration) (*Response, error) {
	if err == nil {
		return nil, &ValidationError{Field: "error", Reason: "simulated error must not be nil"}
	}
	res, vErr := New(Body{}, Options{TimeToFirstByte: ttfb})
	if vErr != nil {
		return nil, vErr
	}
	res.err = err
	res.header = http.Header{}
	return res, nil
}
