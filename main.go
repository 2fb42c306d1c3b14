// Package main is the entrypoint of the cgmlens CLI.
package main

import (
	"github.com/huangsam/cgmlens/cmd"
	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)

	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	iocache.CloseStores()
	if err != nil {
		contract.LogFatal("Command failed", err)
	}
}
