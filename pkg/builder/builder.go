package builder

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/hbagdi/hitstub/pkg/parser"
	"github.com/hbagdi/hitstub/pkg/stub"
	"github.com/tidwall/gjson"
)

const (
	encodingText = "text"
	encodingJSON = "json"
	encodingY2J  = "y2j"

	mimeJSON = "application/json"

	responseExt = ".response"
)

var speeds = map[string]float64{
	"gprs":   stub.SpeedGPRS,
	"edge":   stub.SpeedEDGE,
	"3g":     stub.Speed3G,
	"3g+":    stub.Speed3GPlus,
	"3gplus": stub.Speed3GPlus,
	"wifi":   stub.SpeedWifi,
}

type Options struct {
	GlobalContext parser.Global
	// Dir is where relative file and dump paths are resolved.
	Dir string
}

// Build turns a stub definition into a response descriptor.
func Build(def parser.Stub, opts Options) (*stub.Response, error) {
	ttfb, err := timeToFirstByte(def, opts.GlobalContext)
	if err != nil {
		return nil, err
	}
	if def.Error != "" {
		return stub.FromErrorAfter(errors.New(def.Error), ttfb)
	}
	transfer, err := transfer(def)
	if err != nil {
		return nil, err
	}
	if def.ResponseTime != nil {
		ttfb, transfer = stub.SplitLegacyResponseTime(*def.ResponseTime)
	}
	if def.Dump != "" {
		if def.Status != 0 || len(def.Headers) > 0 {
			return nil, fmt.Errorf("status and headers come from the dump, " +
				"they can not be set alongside it")
		}
		path := resolvePath(opts.Dir, def.Dump)
		if dir, name := filepath.Split(path); strings.HasSuffix(name, responseExt) {
			if dir == "" {
				dir = "."
			}
			return stub.FromNamedResponse(os.DirFS(dir),
				strings.TrimSuffix(name, responseExt), ttfb, transfer)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, &stub.ResourceNotFoundError{Path: def.Dump, Err: err}
		}
		return stub.FromHTTPMessageDump(raw, ttfb, transfer)
	}

	stubOpts := stub.Options{
		StatusCode:      def.Status,
		Header:          header(def.Headers),
		TimeToFirstByte: ttfb,
		Transfer:        transfer,
	}
	if def.File != "" {
		return stub.FromFilePath(resolvePath(opts.Dir, def.File), stubOpts)
	}
	body, cType, err := resolveBody(def)
	if err != nil {
		return nil, err
	}
	if cType != "" && stubOpts.Header.Get("content-type") == "" {
		stubOpts.Header.Set("content-type", cType)
	}
	return stub.FromBytes(body, stubOpts)
}

func timeToFirstByte(def parser.Stub, global parser.Global) (time.Duration, error) {
	value := def.TTFB
	if value == "" {
		value = global.TTFB
	}
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid ttfb '%v': %v", value, err)
	}
	return d, nil
}

func transfer(def parser.Stub) (stub.Transfer, error) {
	switch {
	case def.Duration != "":
		d, err := time.ParseDuration(def.Duration)
		if err != nil {
			return stub.Transfer{}, fmt.Errorf("invalid duration '%v': %v", def.Duration, err)
		}
		return stub.FixedDuration(d), nil
	case def.Rate != nil:
		return stub.Rate(*def.Rate), nil
	case def.Speed != "":
		kbps, ok := speeds[strings.ToLower(def.Speed)]
		if !ok {
			return stub.Transfer{}, fmt.Errorf("unsupported speed '%v', supported "+
				"speeds: gprs, edge, 3g, 3g+, wifi", def.Speed)
		}
		return stub.Rate(kbps), nil
	case def.LegacyResponseTime != nil:
		return stub.LegacyTransfer(*def.LegacyResponseTime), nil
	default:
		return stub.FixedDuration(0), nil
	}
}

func header(headers map[string]string) http.Header {
	res := http.Header{}
	for k, v := range headers {
		res.Set(k, v)
	}
	return res
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

func resolveBody(def parser.Stub) ([]byte, string, error) {
	switch def.BodyEncoding {
	case "", encodingText:
		return []byte(def.Body), "", nil
	case encodingJSON:
		if !gjson.Valid(def.Body) {
			return nil, "", &stub.EncodingError{Err: fmt.Errorf("body is not valid JSON")}
		}
		return []byte(def.Body), mimeJSON, nil
	case encodingY2J:
		js, err := yaml.YAMLToJSON([]byte(def.Body))
		if err != nil {
			return nil, "", &stub.EncodingError{Err: err}
		}
		return js, mimeJSON, nil
	default:
		return nil, "", fmt.Errorf("invalid encoding: %v", def.BodyEncoding)
	}
}
