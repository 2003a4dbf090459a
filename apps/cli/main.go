package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/assessio/assessio-backend/apps/cli/root"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
