// Command arbwatch is the detector process. It watches quoted prices of the
// configured equities across markets, flags cross-market spreads and
// publishes them for the arbnotify process. In simulate mode it also keeps a
// paper trading book.
package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
