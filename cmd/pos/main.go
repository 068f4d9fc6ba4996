package main

import (
	"context"
	"time"

	"github.com/niksmo/pos-terminal/config"
	"github.com/niksmo/pos-terminal/internal/app"
	"github.com/niksmo/pos-terminal/pkg/sigctx"
)

const closeTimeout = 15 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	posTerminal := app.New(sigCtx, cfg)

	posTerminal.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	posTerminal.Close(ctx)
}
