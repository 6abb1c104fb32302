package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zastat/internal/archive"
	"zastat/internal/slogutil"
)

var archivePatterns []string

var archiveCmd = &cobra.Command{
	Use:   "archive DIR OUT.tar.zst",
	Short: "Bundle datacards, fit scripts and shapes for the batch system",
	Long: `Pack the files a fit needs (by default *.dat, *.sh and *.root below DIR)
into one zstd-compressed tarball.

Examples:
  zastat archive limits/dnn/2POIs_r cards.tar.zst
  zastat archive --pattern '**/*.dat' limits cards.tar.zst
  zastat archive extract cards.tar.zst work/`,
	Args: cobra.ExactArgs(2),
	RunE: runArchive,
}

var archiveExtractCmd = &cobra.Command{
	Use:   "extract IN.tar.zst DIR",
	Short: "Unpack a bundle",
	Args:  cobra.ExactArgs(2),
	RunE:  runArchiveExtract,
}

func init() {
	archiveCmd.Flags().StringArrayVar(&archivePatterns, "pattern", nil, "Doublestar pattern of files to include (repeatable)")
	archiveCmd.AddCommand(archiveExtractCmd)
	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	logger := slogutil.NewLogger(cmd.ErrOrStderr(), slogutil.LevelFromVerbosity(verbosity, quiet))
	n, err := archive.Bundle(args[0], args[1], archivePatterns, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Bundled %d files into %s\n", n, args[1])
	return nil
}

func runArchiveExtract(cmd *cobra.Command, args []string) error {
	files, err := archive.Extract(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d files into %s\n", len(files), args[1])
	return nil
}
