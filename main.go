package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maxkimambo/sitebuild/cmd"
	builderrors "github.com/maxkimambo/sitebuild/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprint(os.Stderr, builderrors.FormatForCLI(err))
		stop()
		os.Exit(1)
	}
}
