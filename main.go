package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/hbagdi/hitstub/pkg/cmd"
	"github.com/hbagdi/hitstub/pkg/log"
	"github.com/hbagdi/hitstub/pkg/version"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.Run(ctx, os.Args...)
	if err == nil && len(os.Args) > 1 && os.Args[1] == "version" {
		notifyUpdate(ctx)
	}
	cancel()
	_ = log.Logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func notifyUpdate(ctx context.Context) {
	msg, err := version.UpdateNotice(ctx)
	if err != nil {
		log.Logger.Debug("version-check failed", zap.Error(err))
		return
	}
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
}
