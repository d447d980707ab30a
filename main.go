package main

import (
	"context"
	"os"

	"photo-grouper/cmd"

	"github.com/charmbracelet/fang"
)

const version = "0.3.0"

func main() {
	root := cmd.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(cmd.ShutdownSignals...),
	); err != nil {
		os.Exit(1)
	}
}
