package main

import (
	"os"

	"github.com/rustyeddy/merchant/cmd/merchant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
