package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/hbagdi/hitstub/pkg/cache"
	"github.com/hbagdi/hitstub/pkg/db"
	executorPkg "github.com/hbagdi/hitstub/pkg/executor"
	"github.com/hbagdi/hitstub/pkg/log"
	"github.com/hbagdi/hitstub/pkg/printer"
	"go.uber.org/zap"
)

const minArgs = 2

const usage = `usage: hitstub <command>

  @<id>              play stub <id>, same as 'play @<id>'
  play @<id>         deliver stub <id> to stdout in real time
  preview @<id>      show stub <id> and its delivery schedule
  last @<id>[.path]  show the latest delivery of <id>, or a JSON value in it
  history [n]        list the n most recent deliveries
  browse             browse recorded deliveries
  completion         print the bash completion script
  version            print the version`

// Run executes the command named by args[1]; args[0] is the binary name.
func Run(ctx context.Context, args ...string) error {
	if len(args) < minArgs {
		return fmt.Errorf("need a command to execute\n%s", usage)
	}
	command, rest := args[1], args[2:]

	switch command {
	case "version":
		return executeVersion()
	case "completion":
		return executeCompletion()
	case "__complete":
		return completion()
	case "browse":
		return executeBrowse(ctx)
	case "history":
		return executeHistory(ctx, rest)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	case "play", "preview", "last":
		if len(rest) != 1 {
			return fmt.Errorf("'%s' needs exactly one stub, e.g. '%s @id'", command, command)
		}
		id, err := stubID(rest[0])
		if err != nil {
			return err
		}
		switch command {
		case "play":
			return executePlay(ctx, id)
		case "preview":
			return executePreview(id)
		default:
			return executeLast(ctx, id)
		}
	}
	if command != "" && command[0] == '@' {
		id, err := stubID(command)
		if err != nil {
			return err
		}
		return executePlay(ctx, id)
	}
	return fmt.Errorf("unknown command '%v'\n%s", command, usage)
}

func stubID(arg string) (string, error) {
	if len(arg) < minArgs || arg[0] != '@' {
		return "", fmt.Errorf("stub must begin with '@' character")
	}
	return arg[1:], nil
}

func newPrinter() printer.Printer {
	mode := printer.ModeColorConsole
	if color.NoColor {
		mode = printer.ModeNoColor
	}
	return printer.NewPrinter(printer.Opts{Writer: os.Stdout, Mode: mode})
}

func newExecutor(c cache.Cache) (*executorPkg.Executor, error) {
	opts := &executorPkg.Opts{Logger: log.Logger}
	if c != nil {
		opts.Recorder = c
	}
	executor, err := executorPkg.NewExecutor(opts)
	if err != nil {
		return nil, fmt.Errorf("initialize executor: %v", err)
	}
	if err := executor.LoadFiles(); err != nil {
		_ = executor.Close()
		return nil, fmt.Errorf("read stub files: %v", err)
	}
	return executor, nil
}

func withStore(fn func(store *db.Store) error) (err error) {
	store, err := db.NewStore(db.StoreOpts{Logger: log.Logger})
	if err != nil {
		return fmt.Errorf("set up DB: %v", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Logger.Error("failed to close store", zap.Error(closeErr))
		}
	}()
	return fn(store)
}

func executeHistory(ctx context.Context, args []string) error {
	var opts db.PageOpts
	if len(args) > 0 {
		limit, err := strconv.Atoi(args[0])
		if err != nil || limit <= 0 {
			return fmt.Errorf("invalid history size '%v'", args[0])
		}
		opts.Limit = limit
	}
	return withStore(func(store *db.Store) error {
		hits, err := store.List(ctx, opts)
		if err != nil {
			return err
		}
		p := newPrinter()
		for _, hit := range hits {
			p.PrintSummary(hit)
		}
		return nil
	})
}
