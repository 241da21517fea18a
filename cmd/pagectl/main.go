package main

import (
	"fmt"
	"os"

	"page-composer-backend/internal/cli"
	"page-composer-backend/pkg/logger"
)

var version = "dev"

func main() {
	logger.Init("warn", "development")
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := cli.NewRootCmd(version)
	cmd.SetArgs(args)
	return cmd.Execute()
}
