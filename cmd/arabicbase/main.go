// Command arabicbase runs the ArabicBase entry engine: the persistence API
// server and a command-line client over the entry cache.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := newApp(os.Stdout)
	err := a.rootCommand().ExecuteContext(ctx)
	if shutdownErr := a.shutdown(); shutdownErr != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", shutdownErr)
	}
	stop()

	if err != nil {
		os.Exit(1)
	}
}
