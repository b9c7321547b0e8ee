// Package cmd implements the end2 CLI commands using Cobra.
//
// Available commands:
//   - run: Discover and execute the selected suite
//   - list: Show the modules and tests a selection resolves to
//   - validate: Check an rc file against its schema and its aliases
//   - init: Write a commented .end2rc.yaml
//   - diff: Compare two JSON reports
//   - history: Show past runs stored in the history database
//   - version: Show end2 version information
//
// Selection flags (--suite, --suite-glob, --suite-regex, --suite-tag and
// --suite-last-failed) are mutually exclusive.
package cmd
