package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/neodroidpune/GCMUtility/gcm"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Play services availability, device credentials and the cached token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rt, err := openRuntime(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer rt.Close()

		return runStatus(ctx, rt, useYAML, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(ctx context.Context, rt *runtime, useYAML bool, stdout io.Writer) error {
	service := rt.client.Availability(ctx)

	androidID, checkedIn, err := rt.stores.Device.GetUint64(ctx, gcm.KeyAndroidID)
	if err != nil {
		return fmt.Errorf("reading device credentials: %w", err)
	}
	rec, valid, err := rt.manager.Cached(ctx)
	if err != nil {
		return err
	}

	if useYAML {
		status := map[string]any{
			"app":         rt.cfg.App.Package,
			"app_version": rt.cfg.App.Version,
			"store":       string(rt.cfg.Store.Backend),
			"service":     service.String(),
			"checked_in":  checkedIn,
			"registered":  rec.Token != "",
			"valid":       valid,
		}
		if checkedIn {
			status["android_id"] = androidID
		}
		if rec.Token != "" {
			status["token"] = rec.Token
			status["cached_version"] = rec.AppVersion
		}
		yamlOut(stdout, status)
		return nil
	}

	fmt.Fprintf(stdout, "App:            %s (version %d)\n", rt.cfg.App.Package, rt.cfg.App.Version)
	fmt.Fprintf(stdout, "Store:          %s\n", rt.cfg.Store.Backend)
	fmt.Fprintf(stdout, "Play services:  %s\n", service)
	if checkedIn {
		fmt.Fprintf(stdout, "Android ID:     %d\n", androidID)
	} else {
		fmt.Fprintf(stdout, "Android ID:     not checked in\n")
	}
	switch {
	case rec.Token == "":
		fmt.Fprintf(stdout, "Registration:   none\n")
	case valid:
		fmt.Fprintf(stdout, "Registration:   %s\n", rec.Token)
	default:
		fmt.Fprintf(stdout, "Registration:   %s (stale, cached for version %d)\n", rec.Token, rec.AppVersion)
	}
	return nil
}
