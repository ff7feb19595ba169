package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	dupelink "github.com/mattkeenan/dupelink/pkg"
	"github.com/spf13/cobra"
)

type scanOptions struct {
	dryRun         bool
	hash           string
	workers        int
	format         string
	output         string
	order          string
	referenceOrder string
	symlinks       string
	ignore         []string
	ignoreFile     string
	buffer         string
	verify         bool
	color          string
	showSkipped    bool
}

func newScanCmd(global *globalOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan [ROOT...]",
		Short: "Scan directories for duplicate files",
		Long: `Scan walks every ROOT (default: scan.roots from the config file, or the
current directory), groups files with identical content and reports each
group's reference and duplicates. Duplicates are replaced with symbolic links
only when --dry-run=false.`,
		Example: `  dupelink scan ~/Pictures ~/Backup/Pictures
  dupelink scan --format fdupes /srv/data
  dupelink scan --dry-run=false --workers 8 /srv/data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, global, opts, args)
		},
	}

	defaults := dupelink.DefaultSettings()
	f := cmd.Flags()
	f.BoolVarP(&opts.dryRun, "dry-run", "n", defaults.DryRun, "Report replacements without touching the filesystem")
	f.StringVar(&opts.hash, "hash", defaults.HashAlgorithm, "Hash algorithm (md5, sha1, sha256, sha512, blake2b)")
	f.IntVarP(&opts.workers, "workers", "j", defaults.HashWorkers, "Concurrent hash workers (1 hashes sequentially)")
	f.StringVarP(&opts.format, "format", "f", defaults.Format, "Report format (human, json, fdupes)")
	f.StringVarP(&opts.output, "output", "o", "", "Write the report to a file instead of stdout")
	f.StringVar(&opts.order, "order", defaults.Order, "Directory entry order (sorted, native)")
	f.StringVar(&opts.referenceOrder, "reference-order", defaults.ReferenceOrder, "Order inside a group, the first file is the reference (discovery, path)")
	f.StringVar(&opts.symlinks, "symlinks", defaults.Symlinks, "Symbolic link handling (skip, follow)")
	f.StringArrayVar(&opts.ignore, "ignore", nil, "Regular expression of relative paths to exclude (repeatable)")
	f.StringVar(&opts.ignoreFile, "ignore-file", "", "File with one exclusion pattern per line")
	f.StringVar(&opts.buffer, "buffer", defaults.HashBuffer, "Hash read buffer size (e.g. 64K, 2M)")
	f.BoolVar(&opts.verify, "verify", defaults.Verify, "Compare bytes with the reference before replacing")
	f.StringVar(&opts.color, "color", defaults.Color, "Color the human report (auto, always, never)")
	f.BoolVar(&opts.showSkipped, "show-skipped", false, "List skipped files in the human report")

	return cmd
}

// overrides turns the flags set on the command line into config overrides
func (o *scanOptions) overrides(cmd *cobra.Command) []string {
	flags := cmd.Flags()
	var overrides []string
	add := func(flag, key, value string) {
		if flags.Changed(flag) {
			overrides = append(overrides, key+":"+value)
		}
	}
	add("dry-run", "dry_run", strconv.FormatBool(o.dryRun))
	add("hash", "hash", o.hash)
	add("workers", "workers", strconv.Itoa(o.workers))
	add("format", "format", o.format)
	add("order", "order", o.order)
	add("reference-order", "reference_order", o.referenceOrder)
	add("symlinks", "symlinks", o.symlinks)
	add("ignore-file", "ignore_file", o.ignoreFile)
	add("buffer", "buffer", o.buffer)
	add("verify", "verify", strconv.FormatBool(o.verify))
	add("color", "color", o.color)
	return overrides
}

func runScan(cmd *cobra.Command, global *globalOptions, opts *scanOptions, args []string) error {
	_, settings, err := loadSettings(cmd, global, opts.overrides(cmd))
	if err != nil {
		return err
	}

	// Roots and patterns bypass the comma separated config syntax
	if len(args) > 0 {
		settings.Roots = args
	}
	settings.Ignore = append(settings.Ignore, opts.ignore...)

	if err := settings.Validate(); err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		file, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	reporter, err := dupelink.NewReporter(out, dupelink.ReportOptions{
		Format:      settings.Format,
		Color:       settings.Color,
		ShowSkipped: opts.showSkipped,
	})
	if err != nil {
		return err
	}

	_, err = dupelink.Run(cmd.Context(), settings, reporter, nil)
	return err
}
