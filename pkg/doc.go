// Package dupelink finds byte-identical files across one or more directory
// trees and replaces the duplicates with symbolic links to a single
// reference copy.
//
// # Core API
//
// Run drives a whole invocation:
//
//	settings := dupelink.DefaultSettings()
//	settings.Roots = []string{"/srv/photos", "/srv/backup"}
//	reporter, _ := dupelink.NewReporter(os.Stdout, dupelink.ReportOptions{Format: "human"})
//	result, err := dupelink.Run(ctx, settings, reporter, nil)
//
// Settings.DryRun is true by default, in which case nothing on disk changes.
//
// # Building Blocks
//
// The pipeline is assembled from parts that can be used on their own:
//   - TreeWalker walks a subtree depth-first and calls a Visitor
//   - ContentHasher produces fixed-width hex fingerprints
//   - FingerprintIndex groups FileRecords by fingerprint in a stable order
//   - Resolve and ResolveGroups pick the reference of each group
//   - SymlinkReplacer swaps a duplicate for a link to its reference
//
// # Configuration
//
// LoadConfig reads the INI file, ApplyOverrides and EnvOverrides layer
// environment and command line values on top, and Config.Settings returns
// the typed result. Logging is set up with SetupLogger:
//
//	dupelink.SetupLogger(os.Stderr, 2, "walk,hash")
package dupelink
