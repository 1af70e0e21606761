package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rediwo/redi-ado/logger"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.GetGlobalLogger().Error("%v", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("redi-ado version %s\n", version)
}
