// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Version is overridable at build time via -ldflags.
var Version = "1.0.0"

var (
	// Flags for convert command
	inputFile     string
	outputPath    string
	outputFormat  string
	scanSelection string
	msLevels      string
	noPeakPicking string
	gzipOutput    bool
	verbose       bool
	quiet         bool
)

var rootCmd = &cobra.Command{
	Use:   "thermostream",
	Short: "thermostream - mass-spectrometry recording conversion tool",
	Long: `thermostream converts mass-spectrometry instrument recordings into open
interchange formats: MGF, mzML, indexed mzML and parquet.

Spectra are extracted scan by scan with precursor-lineage reconstruction
across MS levels, monoisotopic precursor correction and optional
centroiding of profile data. Vendor binary recordings need an external
decoder; JSON run dumps are read directly.`,
	Version: Version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(versionCmd)

	// Convert command flags
	convertCmd.Flags().StringVarP(&inputFile, "in", "i", "", "Input recording: JSON run dump (required)")
	convertCmd.Flags().StringVarP(&outputPath, "out", "o", "", "Output file or directory (default: input name with new extension)")
	convertCmd.Flags().StringVarP(&outputFormat, "format", "f", "mzml", "Output format: mgf, mzml, indexed-mzml, parquet")
	convertCmd.Flags().StringVarP(&scanSelection, "scans", "s", "", "Scan range selection, e.g. '1-100,200,300-'")
	convertCmd.Flags().StringVarP(&msLevels, "ms-levels", "l", "", "Comma-separated MS levels to include, e.g. '1,2' (default: all)")
	convertCmd.Flags().StringVar(&noPeakPicking, "no-peak-picking", "", "Comma-separated MS levels to keep as profile data")
	convertCmd.Flags().BoolVarP(&gzipOutput, "gzip", "g", false, "Gzip the MGF output")
	convertCmd.Flags().BoolVar(&verbose, "verbose", false, "Debug logging")
	convertCmd.Flags().BoolVar(&quiet, "quiet", false, "Errors only")

	convertCmd.MarkFlagRequired("in")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("thermostream %s\n", Version)
	},
}

// newLogger maps the verbosity flags to a slog level.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// parseLevels parses a comma-separated list of MS levels.
func parseLevels(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	levels := make([]int, 0, len(parts))
	for _, p := range parts {
		l, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || l < 1 {
			return nil, fmt.Errorf("invalid ms level %q", p)
		}
		levels = append(levels, l)
	}
	return levels, nil
}
