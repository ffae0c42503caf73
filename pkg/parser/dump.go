package parser

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

var ErrNoHeaderSeparator = errors.New("no blank line between headers and body")

var (
	crlfSeparator = []byte("\r\n\r\n")
	lfSeparator   = []byte("\n\n")
)

const defaultDumpStatus = http.StatusOK

// ResponseDump is a response split out of a raw HTTP message.
type ResponseDump struct {
	Proto      string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ParseResponseDump splits raw at the first blank line. The first line of
// the header block is the status line, the rest are headers; the remainder
// after the blank line is the body, verbatim.
func ParseResponseDump(raw []byte) (ResponseDump, error) {
	headerBlock, body, ok := splitMessage(raw)
	if !ok {
		return ResponseDump{}, ErrNoHeaderSeparator
	}
	res := ResponseDump{
		StatusCode: defaultDumpStatus,
		Header:     http.Header{},
		Body:       append([]byte{}, body...),
	}
	lines := strings.Split(string(headerBlock), "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if i == 0 {
			res.Proto, res.StatusCode = statusLine(line)
			continue
		}
		name, value, ok := headerLine(line)
		if !ok {
			continue
		}
		res.Header.Set(name, value)
	}
	return res, nil
}

func splitMessage(raw []byte) ([]byte, []byte, bool) {
	crlf := bytes.Index(raw, crlfSeparator)
	lf := bytes.Index(raw, lfSeparator)
	switch {
	case crlf < 0 && lf < 0:
		return nil, nil, false
	case lf < 0 || (crlf >= 0 && crlf < lf):
		return raw[:crlf], raw[crlf+len(crlfSeparator):], true
	default:
		return raw[:lf], raw[lf+len(lfSeparator):], true
	}
}

func statusLine(line string) (string, int) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return "", defaultDumpStatus
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil || code < 100 || code > 999 {
		return fields[0], defaultDumpStatus
	}
	return fields[0], code
}

func headerLine(line string) (string, string, bool) {
	kv := strings.SplitN(line, ":", kvSplitCount)
	if len(kv) != kvSplitCount {
		return "", "", false
	}
	name := strings.TrimSpace(kv[0])
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(kv[1]), true
}

const kvSplitCount = 2
