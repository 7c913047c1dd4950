package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Check the device in with GCM (debug helper)",
	Long:  "Performs only the device checkin step and stores the resulting credentials. Useful for debugging registration failures.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		rt, err := openRuntime(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer rt.Close()

		return runCheckin(ctx, rt, useYAML, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(checkinCmd)
}

func runCheckin(ctx context.Context, rt *runtime, useYAML bool, stdout io.Writer) error {
	creds, err := rt.client.Checkin(ctx)
	if err != nil {
		return fmt.Errorf("GCM checkin failed: %w", err)
	}
	if useYAML {
		yamlOut(stdout, map[string]any{"android_id": creds.AndroidID})
		return nil
	}
	fmt.Fprintf(stdout, "Android ID: %d\n", creds.AndroidID)
	return nil
}
