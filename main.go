// main is the entry point of the autoindex CLI.
package main

import (
	"github.com/huangsam/autoindex/cmd"
	"github.com/huangsam/autoindex/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("autoindex failed", err)
	}
}
