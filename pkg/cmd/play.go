package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hbagdi/hitstub/pkg/cache"
	"github.com/hbagdi/hitstub/pkg/db"
	"github.com/hbagdi/hitstub/pkg/log"
	"github.com/hbagdi/hitstub/pkg/printer"
	"go.uber.org/zap"
)

func executePreview(id string) error {
	executor, err := newExecutor(nil)
	if err != nil {
		return err
	}
	defer executor.Close()

	s, err := executor.BuildStub(id)
	if err != nil {
		return err
	}
	sched, err := executor.Schedule(s)
	if err != nil {
		return err
	}
	defer sched.Close()

	p := newPrinter()
	if err := p.PrintStub(s.ID, s.Response); err != nil {
		return err
	}
	fmt.Println()
	p.PrintSchedule(sched)
	return nil
}

func executePlay(ctx context.Context, id string) error {
	return withStore(func(store *db.Store) (err error) {
		dbCache := cache.GetDBCache(store)
		defer func() {
			flushErr := dbCache.Flush()
			if flushErr != nil {
				if err == nil {
					err = flushErr
				} else {
					log.Logger.Error("failed to flush cache", zap.Error(flushErr))
				}
			}
		}()

		executor, err := newExecutor(dbCache)
		if err != nil {
			return err
		}
		defer executor.Close()

		s, err := executor.BuildStub(id)
		if err != nil {
			return err
		}
		hit, err := executor.Execute(ctx, s, os.Stdout)
		if err != nil {
			return err
		}
		if hit.Failed() {
			p := printer.NewPrinter(printer.Opts{Writer: os.Stderr, Mode: printer.ModeNoColor})
			p.PrintSummary(hit)
		}
		return nil
	})
}

func executeLast(ctx context.Context, ref string) error {
	return withStore(func(store *db.Store) error {
		if strings.Contains(ref, ".") {
			value, err := cache.GetDBCache(store).Get(ctx, ref)
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		}
		hit, err := store.LoadLatestHitForID(ctx, ref)
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("no delivery of '@%s' recorded", ref)
		}
		if err != nil {
			return err
		}
		return newPrinter().Print(hit)
	})
}
