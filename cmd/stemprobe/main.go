// Command stemprobe computes STEM probe profiles, probe sizes and MTFs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/HamletTheHamster/stemprobe/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
