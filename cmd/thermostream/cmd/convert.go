package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mzio/thermostream/internal/convert"
	"github.com/mzio/thermostream/internal/rawfile"
	"github.com/mzio/thermostream/internal/writer"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a recording to MGF, mzML, indexed mzML or parquet",
	Long: `Convert a mass-spectrometry recording into an open interchange format.

Examples:
  # Full run to indexed mzML
  thermostream convert --in run1.json --format indexed-mzml

  # Fragmentation spectra only, gzipped MGF
  thermostream convert --in run1.json --format mgf --ms-levels 2,3 --gzip

  # A scan range to parquet, one row per peak
  thermostream convert --in run1.json --format parquet --scans 1000-2000`,
	RunE: runConvert,
}

// formatExtension maps the output format to its file extension.
func formatExtension(format string, gz bool) string {
	switch format {
	case "mgf":
		if gz {
			return ".mgf.gz"
		}
		return ".mgf"
	case "mzml", "indexed-mzml":
		return ".mzML"
	case "parquet":
		return ".parquet"
	}
	return ""
}

// resolveOutputPath normalizes the --out flag: empty means next to the
// input, a directory means the input's base name inside it, and any
// other value is taken as the output file path.
func resolveOutputPath(format string) string {
	base := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
	name := base + formatExtension(format, gzipOutput)
	if outputPath == "" {
		return filepath.Join(filepath.Dir(inputFile), name)
	}
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		return filepath.Join(outputPath, name)
	}
	return outputPath
}

func runConvert(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(outputFormat)
	switch format {
	case "mgf", "mzml", "indexed-mzml", "parquet":
	default:
		return fmt.Errorf("invalid output format %q, must be mgf, mzml, indexed-mzml or parquet", outputFormat)
	}
	if gzipOutput && format != "mgf" {
		return fmt.Errorf("--gzip applies to mgf output only")
	}

	levels, err := parseLevels(msLevels)
	if err != nil {
		return err
	}
	profileLevels, err := parseLevels(noPeakPicking)
	if err != nil {
		return err
	}

	log := newLogger()
	reader, err := rawfile.Open(inputFile)
	if err != nil {
		return err
	}
	defer reader.Close()

	conv := convert.New(reader, log)
	opt := convert.Options{
		Scans:         scanSelection,
		Levels:        levels,
		NoPeakPicking: profileLevels,
		ChargeData:    format == "mgf",
	}
	settings := writer.Settings{Levels: levels}
	runID := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))

	outFile := resolveOutputPath(format)
	out, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	var w writer.SpectrumWriter
	switch format {
	case "mgf":
		w = writer.NewMGF(out, runID, settings, gzipOutput)
	case "mzml", "indexed-mzml":
		// The spectrumList count attribute precedes the spectra
		count, err := conv.CountMatching(opt)
		if err != nil {
			return err
		}
		w, err = writer.NewMzML(out, writer.MzMLConfig{
			Indexed:       format == "indexed-mzml",
			SpectrumCount: count,
			RunID:         runID,
			SourceFile:    filepath.Base(inputFile),
			Version:       Version,
			StartTime:     time.Now(),
			Compress:      true,
			PeakPicked:    len(profileLevels) == 0,
		}, settings)
		if err != nil {
			return err
		}
	case "parquet":
		w = writer.NewParquet(out, settings)
	}

	stats, err := conv.Run(w, opt)
	if err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing output: %w", err)
	}

	log.Info("wrote output", "file", outFile, "spectra", stats.Written,
		"errors", stats.Errors, "warnings", stats.Warnings)
	return nil
}
