package main

import (
	"fmt"
	"os"

	_ "github.com/ensemblecast/ensemble/transport/quic"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
