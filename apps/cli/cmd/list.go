package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/abdul-hamid-achik/end2/packages/core/discovery"
	"github.com/abdul-hamid-achik/end2/packages/core/suite"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var listTestsFlag bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the modules and tests a selection resolves to",
	Long: `List the modules and tests a selection resolves to, without running
anything. Without a selection flag the whole catalog is listed.

Examples:
  end2 list
  end2 list --suite smoke --tests
  end2 list --suite-tag "!slow"`,
	Args: cobra.NoArgs,
	RunE: listCommand,
}

func init() {
	addSelectionFlags(listCmd)
	listCmd.Flags().BoolVar(&listTestsFlag, "tests", false, "List every test instead of one row per module")
}

func listCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	targets, ignored, err := selectTargets(cfg, true)
	if errors.Is(err, errNoLastFailed) {
		fmt.Fprintf(cmd.OutOrStdout(), "%v\n", err)
		return nil
	}
	if err != nil {
		return err
	}

	tree, failedImports := discovery.DiscoverSuite(registry, targets, ignored, discovery.Options{
		Seed:   1,
		Logger: newLogger(cmd.ErrOrStderr()),
	})

	modules := slices.Collect(tree.Modules())
	slices.SortFunc(modules, func(a, b *suite.TestModule) int {
		return strings.Compare(a.Path, b.Path)
	})

	if listTestsFlag {
		renderTests(cmd.OutOrStdout(), modules)
	} else {
		renderModules(cmd.OutOrStdout(), modules)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d modules, %d tests\n", len(modules), tree.Count())

	for _, fi := range failedImports {
		fmt.Fprintf(cmd.ErrOrStderr(), "  x %s\n", fi)
	}
	if len(failedImports) > 0 {
		return &ExitError{Code: ExitSelectionError}
	}
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func renderModules(w io.Writer, modules []*suite.TestModule) {
	table := newTable(w, "Module", "Mode", "Tests", "Tags", "Description")
	for _, m := range modules {
		table.Append([]string{
			m.Path,
			m.RunMode.String(),
			fmt.Sprint(m.Count()),
			strings.Join(m.Tags, ","),
			m.Description,
		})
	}
	table.Render()
}

func renderTests(w io.Writer, modules []*suite.TestModule) {
	table := newTable(w, "Test", "Variants", "Tags", "Description")
	for _, m := range modules {
		tests := m.Root.All()
		slices.SortFunc(tests, func(a, b *suite.TestCase) int {
			return strings.Compare(a.Name, b.Name)
		})
		for _, tc := range tests {
			variants := "-"
			if tc.Parameterized {
				variants = fmt.Sprint(len(tc.Variants()))
			}
			table.Append([]string{tc.FullName(), variants, strings.Join(tc.Tags, ","), tc.Description})
		}
	}
	table.Render()
}
