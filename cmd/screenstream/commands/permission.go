package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Check screen capture permission",
	Long: `Check whether screen capture permission has been granted.

With --request, runs the desktop portal handshake, which may open a
system dialog asking the user to approve screen capture. A restore
token is saved so subsequent runs do not prompt again.`,
	Example: `  # Show current permission state
  screenstream permission

  # Request permission via the desktop portal
  screenstream permission --request`,
	RunE: runPermission,
}

var permissionRequest bool

func init() {
	rootCmd.AddCommand(permissionCmd)

	permissionCmd.Flags().BoolVarP(&permissionRequest, "request", "r", false, "run the portal handshake if not yet granted")
}

func runPermission(cmd *cobra.Command, args []string) error {
	service, err := newCommandService()
	if err != nil {
		return err
	}
	defer service.Close()

	if service.IsCapturePermissionGranted() {
		fmt.Println("Screen capture permission: granted")
		return nil
	}

	if !permissionRequest {
		fmt.Println("Screen capture permission: not granted")
		fmt.Println("Run with --request to ask via the desktop portal.")
		return nil
	}

	fmt.Println("Requesting screen capture permission...")
	service.CheckCapturePermission()

	deadline := time.After(2 * time.Minute)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if service.IsCapturePermissionGranted() {
				fmt.Println("Screen capture permission: granted")
				return nil
			}
		case <-deadline:
			return fmt.Errorf("permission was not granted")
		}
	}
}
