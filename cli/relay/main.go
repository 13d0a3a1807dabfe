package main

import (
	"os"

	relaycmder "github.com/papercomputeco/relay/cmd/relay"
)

func main() {
	cmd := relaycmder.NewRelayCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
