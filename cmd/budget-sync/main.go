// Package main is the entry point for the budget-sync CLI.
package main

import (
	"os"

	"github.com/hmarston/monzo-budget/cmd/budget-sync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
