package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hongminglow/community-site/internal/client/cli"
)

func main() {
	cfg, args, err := cli.LoadConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.NewApp(cfg, os.Stdin, os.Stdout, os.Stderr).Run(ctx, args)
	stop()
	os.Exit(code)
}
