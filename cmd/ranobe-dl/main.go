// ranobe-dl - RanobeLIB novel downloader
package main

import (
	"fmt"
	"os"

	"github.com/ranobe-tools/ranobe-dl/internal/cli"
)

// Version information, injected at release build time:
//
//	go build -ldflags "-X main.Version=v1.0.0 -X main.BuildTime=$(date -u +%Y-%m-%d)" ./cmd/ranobe-dl
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
