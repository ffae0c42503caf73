package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ghodss/yaml"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-_]+$`)

type File struct {
	// Dir is the directory of the file, relative paths in stubs resolve
	// against it.
	Dir    string `json:"-"`
	Global Global `json:"global"`
	Stubs  []Stub `json:"stubs"`
}

type Global struct {
	Version   int    `json:"version"`
	ChunkSize int    `json:"chunk_size,omitempty"`
	TTFB      string `json:"ttfb,omitempty"`
}

type Stub struct {
	ID      string            `json:"id"`
	Status  int               `json:"status,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	TTFB               string   `json:"ttfb,omitempty"`
	Duration           string   `json:"duration,omitempty"`
	Rate               *float64 `json:"rate,omitempty"`
	Speed              string   `json:"speed,omitempty"`
	LegacyResponseTime *float64 `json:"legacy_response_time,omitempty"`
	// ResponseTime splits into ttfb and transfer, it can not be combined
	// with either.
	ResponseTime *float64 `json:"response_time,omitempty"`

	BodyEncoding string `json:"body_encoding,omitempty"`
	Body         string `json:"body,omitempty"`
	File         string `json:"file,omitempty"`
	Dump         string `json:"dump,omitempty"`
	Error        string `json:"error,omitempty"`
}

func Parse(filename string) (File, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return File{}, err
	}
	res, err := ParseBytes(content)
	if err != nil {
		return File{}, err
	}
	res.Dir = filepath.Dir(filename)
	return res, nil
}

func ParseBytes(content []byte) (File, error) {
	var res File
	if err := yaml.Unmarshal(content, &res); err != nil {
		return File{}, fmt.Errorf("parse yaml: %v", err)
	}
	seen := map[string]bool{}
	for i, s := range res.Stubs {
		if !idRegex.MatchString(s.ID) {
			return File{}, fmt.Errorf("invalid id: '%v'", s.ID)
		}
		if seen[s.ID] {
			return File{}, fmt.Errorf("duplicate id: '%v'", s.ID)
		}
		seen[s.ID] = true
		if err := checkSources(s); err != nil {
			return File{}, fmt.Errorf("stub[%d] '%v': %v", i, s.ID, err)
		}
		if err := checkTiming(s); err != nil {
			return File{}, fmt.Errorf("stub[%d] '%v': %v", i, s.ID, err)
		}
	}
	return res, nil
}

func checkSources(s Stub) error {
	n := 0
	for _, source := range []string{s.Body, s.File, s.Dump, s.Error} {
		if source != "" {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("expected at most one of body, file, dump or error")
	}
	if s.BodyEncoding != "" && s.Body == "" {
		return fmt.Errorf("body_encoding requires a body")
	}
	return nil
}

func checkTiming(s Stub) error {
	n := 0
	if s.Duration != "" {
		n++
	}
	if s.Rate != nil {
		n++
	}
	if s.Speed != "" {
		n++
	}
	if s.LegacyResponseTime != nil {
		n++
	}
	if n > 1 {
		return fmt.Errorf("expected at most one of duration, rate, speed or" +
			" legacy_response_time")
	}
	if s.ResponseTime != nil && (n > 0 || s.TTFB != "") {
		return fmt.Errorf("response_time can not be combined with ttfb or" +
			" another timing")
	}
	return nil
}
