// main is the entry point of the devscore CLI.
package main

import (
	"github.com/huangsam/devscore/cmd"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/internal/iocache"
)

func main() {
	defer iocache.CloseCaching()
	if err := cmd.Execute(); err != nil {
		iocache.CloseCaching()
		contract.LogFatal("Error", err)
	}
}
