package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/end2/packages/core/catalog"
	"github.com/abdul-hamid-achik/end2/packages/core/config"
	"github.com/abdul-hamid-achik/end2/packages/core/parser"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [rc-file]",
	Short: "Validate an rc file",
	Long: `Validate an rc file against its schema, then check that every alias
and disabled entry names something in the catalog.

Without an argument the rc file of the current directory is validated.

Examples:
  end2 validate
  end2 validate ci/.end2rc.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	path, err := rcPath(args)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	if err := config.Validate(data); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", path, err)
		return &ExitError{Code: ExitConfigError, Err: fmt.Errorf("validation failed")}
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}

	hasErrors := false
	for alias := range cfg.SuiteAlias {
		resolved, _ := cfg.ResolveSelectors([]string{alias})
		for _, missing := range missingPaths(resolved) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Alias %q: module doesn't exist - %s\n", alias, missing)
			hasErrors = true
		}
	}
	_, disabled := cfg.ResolveSelectors(nil)
	for _, d := range disabled {
		if registry.Stat(d) == catalog.Missing {
			fmt.Fprintf(cmd.ErrOrStderr(), "Disabled suite doesn't exist - %s\n", d)
			hasErrors = true
		}
	}

	if hasErrors {
		return &ExitError{Code: ExitConfigError, Err: fmt.Errorf("validation failed")}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", path)
	return nil
}

// rcPath is the explicit argument or the rc file found in the working
// directory.
func rcPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for _, name := range config.ConfigFilenames {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", &ExitError{Code: ExitConfigError, Err: fmt.Errorf("no rc file found in %s", cwd)}
}

// missingPaths lists the selector paths the catalog does not know.
func missingPaths(selectors []string) []string {
	importables, ignored := parser.ParseSuitePaths(selectors)
	var missing []string
	for _, imp := range importables {
		if registry.Stat(imp.Path) == catalog.Missing {
			missing = append(missing, imp.Path)
		}
	}
	for _, path := range ignored {
		if registry.Stat(path) == catalog.Missing {
			missing = append(missing, path)
		}
	}
	return missing
}
