package main

import (
	"github.com/fredbi/insightviz/internal/cmd"
)

func main() {
	cli := cmd.NewCommand()

	if err := cli.Execute(); err != nil {
		cli.Fatalf(err)
	}
}
