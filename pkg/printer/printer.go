package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/hbagdi/hitstub/pkg/model"
	"github.com/hbagdi/hitstub/pkg/schedule"
	"github.com/hbagdi/hitstub/pkg/stub"
	"github.com/nwidger/jsoncolor"
	"github.com/tidwall/gjson"
)

type Printer struct {
	writer io.Writer
	mode   Mode
}

type Mode int

const (
	ModeColorConsole Mode = iota
	ModeBrowser
	ModeNoColor
)

type Opts struct {
	Writer io.Writer
	Mode   Mode
}

func NewPrinter(opts Opts) Printer {
	return Printer{
		writer: opts.Writer,
		mode:   opts.Mode,
	}
}

// Print renders a recorded hit: the delivered response, or the simulated
// error, followed by its timing.
func (p Printer) Print(hit model.Hit) error {
	if hit.Failed() {
		p.printError(hit.Error)
	} else if err := p.printResponse(hit.Response); err != nil {
		return err
	}
	fmt.Fprintln(p.writer)
	p.printTiming(hit.Timing)
	return nil
}

// PrintSummary renders hit as a single line.
func (p Printer) PrintSummary(hit model.Hit) {
	created := time.Unix(hit.CreatedAt, 0).Format(time.RFC3339)
	outcome := p.colorPrinterFor(colorForCode(hit.Response.Code)).
		SprintfFunc()("%s", hit.Response.Status)
	if hit.Failed() {
		outcome = p.colorPrinterFor(red).SprintfFunc()("error: %s", hit.Error)
	}
	idSprintf := p.colorPrinterFor(grey).SprintfFunc()
	fmt.Fprintf(p.writer, "%s %s @%s %s %v\n", idSprintf("%d", hit.ID), created,
		hit.StubID, outcome, hit.Timing.Elapsed)
}

// PrintStub renders a descriptor before it is delivered.
func (p Printer) PrintStub(id string, resp *stub.Response) error {
	fmt.Fprintln(p.writer, p.colorPrinterFor(white).SprintfFunc()("@%s", id))
	if err := resp.Err(); err != nil {
		p.printError(err.Error())
		return nil
	}
	code := resp.StatusCode()
	fmt.Fprintf(p.writer, "%s %s\n", model.DefaultProto,
		p.colorPrinterFor(colorForCode(code)).SprintfFunc()("%s", model.Status(code)))
	p.printHeaders(resp.Header())
	fmt.Fprintln(p.writer)

	body := resp.Body()
	switch {
	case body.IsAbsent():
	case body.Path() != "":
		fmt.Fprintln(p.writer, p.colorPrinterFor(grey).SprintfFunc()(
			"<file %s, %d bytes>", body.Path(), body.Size()))
	case body.IsStream():
		fmt.Fprintln(p.writer, p.colorPrinterFor(grey).SprintfFunc()(
			"<stream, %d bytes>", body.Size()))
	default:
		return p.printBody(body.Bytes())
	}
	return nil
}

// PrintSchedule renders when each event of s is due, without reading the
// body.
func (p Printer) PrintSchedule(s *schedule.Schedule) {
	keySprintf := p.colorPrinterFor(cyan).SprintfFunc()
	valueSprintf := p.colorPrinterFor(white).SprintfFunc()
	fmt.Fprintf(p.writer, "%s%s\n", keySprintf("bytes"), valueSprintf(": %d", s.TotalBytes()))
	fmt.Fprintf(p.writer, "%s%s\n", keySprintf("transfer"), valueSprintf(": %v", s.TransferDuration()))
	fmt.Fprintf(p.writer, "%s%s\n", keySprintf("last byte"), valueSprintf(": %v", s.Deadline()))
	for i, at := range s.Times() {
		fmt.Fprintf(p.writer, "%s %s %s\n",
			p.colorPrinterFor(grey).SprintfFunc()("#%d", i),
			p.colorPrinterFor(yellow).SprintfFunc()("+%v", at),
			valueSprintf("%d bytes", s.ChunkLen(i)))
	}
}

type colorPrinter interface {
	SprintfFunc() func(format string, a ...interface{}) string
}

type noColor struct {
}

func (n noColor) SprintfFunc() func(format string, a ...interface{}) string {
	return fmt.Sprintf
}

type tvColor struct {
	color string
}

func (c tvColor) SprintfFunc() func(format string, a ...interface{}) string {
	return func(format string, a ...interface{}) string {
		return fmt.Sprintf("["+c.color+"]"+format+"[-:-:-]", a...)
	}
}

type colorName int

const (
	white colorName = iota
	cyan
	yellow
	grey
	blue
	green
	red
)

var (
	consoleColors = map[colorName]colorPrinter{}
	browserColors = map[colorName]colorPrinter{}
)

func init() {
	consoleColors[white] = color.New(color.FgWhite)
	browserColors[white] = tvColor{color: "white"}

	consoleColors[cyan] = color.New(color.FgCyan)
	browserColors[cyan] = tvColor{color: "darkcyan"}

	consoleColors[yellow] = color.New(color.FgYellow)
	browserColors[yellow] = tvColor{color: "yellow"}

	consoleColors[grey] = color.New(color.FgBlack, color.Bold)
	browserColors[grey] = tvColor{color: "#656565"}

	consoleColors[blue] = color.New(color.FgBlue)
	browserColors[blue] = tvColor{color: "blue"}

	consoleColors[green] = color.New(color.FgGreen)
	browserColors[green] = tvColor{color: "green"}

	consoleColors[red] = color.New(color.FgRed)
	browserColors[red] = tvColor{color: "red"}
}

func (p Printer) colorPrinterFor(name colorName) colorPrinter {
	switch p.mode {
	case ModeColorConsole:
		return consoleColors[name]
	case ModeBrowser:
		return browserColors[name]
	case ModeNoColor:
		return noColor{}
	default:
		panic(fmt.Sprintf("invalid mode: %v", p.mode))
	}
}

//nolint:gomnd
func colorForCode(code int) colorName {
	switch {
	case code < 200:
		return white
	case code < 300:
		return green
	case code < 500:
		return yellow
	case code < 600:
		return red
	default:
		return white
	}
}

func (p Printer) printError(msg string) {
	fmt.Fprintln(p.writer, p.colorPrinterFor(red).SprintfFunc()("error: %s", msg))
}

func (p Printer) printResponse(resp model.Response) error {
	status := p.colorPrinterFor(colorForCode(resp.Code)).SprintfFunc()("%s", resp.Status)
	fmt.Fprintf(p.writer, "%s %s\n", resp.Proto, status)

	p.printHeaders(resp.Header)
	fmt.Fprintln(p.writer)

	return p.printBody(resp.Body)
}

func (p Printer) printTiming(t model.Timing) {
	sprintf := p.colorPrinterFor(grey).SprintfFunc()
	fmt.Fprintln(p.writer, sprintf("ttfb %v, transfer %v, %d chunks, took %v",
		t.TTFB, t.Transfer, t.Chunks, t.Elapsed))
}

func (p Printer) printBody(body []byte) error {
	if len(body) == 0 {
		return nil
	}
	if gjson.ValidBytes(body) {
		js, err := p.prettyJSON(body)
		if err != nil {
			return err
		}
		fmt.Fprintln(p.writer, string(js))
	} else {
		res := p.colorPrinterFor(white).SprintfFunc()("%s", body)
		fmt.Fprintln(p.writer, res)
	}
	return nil
}

func (p Printer) prettyJSON(js []byte) ([]byte, error) {
	formatter := p.formatter()

	var jsMap interface{}
	if err := json.Unmarshal(js, &jsMap); err != nil {
		return nil, err
	}

	dst, err := jsoncolor.MarshalIndentWithFormatter(jsMap, "", "  ", formatter)
	if err != nil {
		return nil, err
	}
	return dst, nil
}

func (p Printer) printHeaders(header http.Header) {
	headerKeySprintf := p.colorPrinterFor(cyan).SprintfFunc()
	headerValueSprintf := p.colorPrinterFor(white).SprintfFunc()
	var res string
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		values := header[k]
		for _, v := range values {
			res += headerKeySprintf("%s", k)
			res += headerValueSprintf(": %s\n", v)
		}
	}
	fmt.Fprintf(p.writer, "%s", res)
}

func (p Printer) formatter() *jsoncolor.Formatter {
	f := jsoncolor.NewFormatter()
	whiteP := p.colorPrinterFor(white)
	blueP := p.colorPrinterFor(blue)
	greenP := p.colorPrinterFor(green)
	greyP := p.colorPrinterFor(grey)
	yellowP := p.colorPrinterFor(yellow)

	f.ObjectColor = whiteP
	f.ArrayColor = whiteP
	f.FieldQuoteColor = whiteP
	f.CommaColor = whiteP
	f.StringQuoteColor = whiteP
	f.ColonColor = whiteP
	f.SpaceColor = whiteP

	f.FieldColor = blueP

	f.NullColor = greyP

	f.StringColor = greenP

	f.TrueColor = yellowP
	f.FalseColor = yellowP

	f.NumberColor = blueP
	return f
}
