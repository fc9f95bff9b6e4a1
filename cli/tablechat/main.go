package main

import (
	"os"

	tablechatcmder "github.com/papercomputeco/tablechat/cmd/tablechat"
)

func main() {
	cmd := tablechatcmder.NewTablechatCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
