// Command promptctl converts trend prompts between flat text, blocks and
// sections without a running server.
//
// Usage:
//
//	promptctl parse prompt.txt
//	promptctl split prompt.txt > sections.json
//	promptctl flatten sections.json
//	promptctl substitute prompt.txt --var gender=female --db data/trendstudio.db
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra already printed the error
		os.Exit(1)
	}
}
