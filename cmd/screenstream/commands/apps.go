package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"screenstream"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List applications with capturable windows",
	Long: `List the applications that own at least one capturable window.

Applications are grouped by process, with a synthesized bundle
identifier derived from the process name.`,
	Example: `  # List applications in table format (default)
  screenstream apps

  # List applications in JSON format
  screenstream apps --format json`,
	RunE: runApps,
}

var appsFormat string

func init() {
	rootCmd.AddCommand(appsCmd)

	appsCmd.Flags().StringVarP(&appsFormat, "format", "f", "table", "output format (table or json)")
}

func runApps(cmd *cobra.Command, args []string) error {
	service, err := newCommandService()
	if err != nil {
		return err
	}
	defer service.Close()

	apps, err := service.Applications()
	if err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}

	switch appsFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(apps)
	case "table":
		return printAppsTable(apps)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", appsFormat)
	}
}

func printAppsTable(apps []screenstream.ApplicationInfo) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "PID\tNAME\tBUNDLE ID")
	fmt.Fprintln(w, "---\t----\t---------")

	for _, app := range apps {
		fmt.Fprintf(w, "%d\t%s\t%s\n", app.PID, app.Name, app.BundleIdentifier)
	}

	return nil
}
