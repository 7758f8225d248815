package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"screenstream"
	"screenstream/internal/config"
	"screenstream/internal/logger"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List capturable windows",
	Long: `List all on-screen windows that can be captured.

This command connects to the X11 server and retrieves the identifier,
owning process, title and dimensions of every capturable window.`,
	Example: `  # List windows in table format (default)
  screenstream windows

  # List windows in JSON format
  screenstream windows --format json`,
	RunE: runWindows,
}

var windowsFormat string

func init() {
	rootCmd.AddCommand(windowsCmd)

	windowsCmd.Flags().StringVarP(&windowsFormat, "format", "f", "table", "output format (table or json)")
}

func runWindows(cmd *cobra.Command, args []string) error {
	service, err := newCommandService()
	if err != nil {
		return err
	}
	defer service.Close()

	windows, err := service.Windows()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}

	switch windowsFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(windows)
	case "table":
		return printWindowsTable(windows)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", windowsFormat)
	}
}

func printWindowsTable(windows []screenstream.WindowInfo) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tPID\tTITLE\tAPPLICATION\tSIZE")
	fmt.Fprintln(w, "--\t---\t-----\t-----------\t----")

	for _, win := range windows {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%dx%d\n",
			win.ID, win.PID, win.Title, win.ApplicationName, win.Width, win.Height)
	}

	return nil
}

// newCommandService builds a capture service for one-shot CLI commands.
func newCommandService() (*screenstream.Service, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(configMgr.GetLogLevel(), true)

	service, err := screenstream.NewService(configMgr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize capture service: %w", err)
	}
	return service, nil
}
