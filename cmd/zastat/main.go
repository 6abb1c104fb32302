package main

import (
	"fmt"
	"log/slog"
	"os"

	zerrors "zastat/internal/errors"
	"zastat/internal/slogutil"
)

func main() {
	logger := slogutil.NewLogger(os.Stderr, slog.LevelInfo)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", "error", err)
		printSuggestedFixes(err)
		os.Exit(1)
	}
}

// printSuggestedFixes lists the known fixes for the error code in err's chain.
func printSuggestedFixes(err error) {
	for _, fix := range zerrors.GetSuggestedFixes(zerrors.CodeOf(err)) {
		switch fix.Type {
		case zerrors.RunCommand:
			fmt.Fprintf(os.Stderr, "  try: %s  (%s)\n", fix.Command, fix.Description)
		case zerrors.EditConfig:
			fmt.Fprintf(os.Stderr, "  set %s in zastat.toml: %s\n", fix.Field, fix.Description)
		}
	}
}
