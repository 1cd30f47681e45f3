// Command quesster drives the Quesster daily quiz contracts on Celo from the
// terminal: approve the entry fee, join with committed answers, create
// community quizzes, mint the Pro badge and run admin payouts.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
