package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	cmd "github.com/jpfielding/encapdoc.go/cmd/ctl/cmd"
	"github.com/jpfielding/encapdoc.go/pkg/encapdoc"
	"github.com/jpfielding/encapdoc.go/pkg/logging"
)

var (
	GitSHA string = "NA"
)

func main() {
	// register sigterm for graceful shutdown
	ctx, cnc := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cnc()
	go func() {
		defer cnc() // this cnc is from notify and removes the signal so subsequent ctrl-c will restore kill functions
		<-ctx.Done()
	}()
	slog.SetDefault(logging.Logger(os.Stderr, false, slog.LevelInfo))
	ctx = logging.AppendCtx(ctx,
		slog.Group("encapdoc",
			slog.String("name", "ctl"),
			slog.String("git", GitSHA),
		))
	err := cmd.NewRoot(ctx, GitSHA).ExecuteContext(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "conversion failed", "kind", encapdoc.KindOf(err).String(), "error", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
	}
	cnc()
	os.Exit(encapdoc.ExitCode(err))
}
