package main

import (
	"context"
	"os"

	"github.com/MeKo-Tech/holdscan/cmd/holdscan/cmd"
	"github.com/MeKo-Tech/holdscan/internal/version"
	"github.com/charmbracelet/fang"
)

func main() {
	root := cmd.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version.String()),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
