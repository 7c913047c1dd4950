package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	gcmutility "github.com/neodroidpune/GCMUtility"
	"github.com/neodroidpune/GCMUtility/verify"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"
)

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

var newVerifier = func(ctx context.Context, credentialsFile, projectID string, logger *slog.Logger) (tokenVerifier, error) {
	return verify.New(ctx, projectID, logger, option.WithCredentialsFile(credentialsFile))
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Print the GCM registration token, registering if the cache is stale",
	Long: `Checks Play services availability for the configured device profile, then
returns the cached registration token if it was issued for the configured app
version. Otherwise registers with GCM and caches the new token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sender, _ := cmd.Flags().GetString("sender")
		credsFile, _ := cmd.Flags().GetString("verify-credentials")
		project, _ := cmd.Flags().GetString("firebase-project")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		rt, err := openRuntime(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer rt.Close()

		if sender == "" {
			sender = rt.cfg.SenderID
		}
		opts := registerOptions{
			senderID:        sender,
			credentialsFile: credsFile,
			firebaseProject: project,
			useYAML:         useYAML,
		}
		return runRegister(ctx, rt, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	registerCmd.Flags().String("sender", "", "GCM sender ID (default from config or GCM_SENDER_ID)")
	registerCmd.Flags().String("verify-credentials", "", "Firebase service account JSON; send a test push to the token after registering")
	registerCmd.Flags().String("firebase-project", "", "Firebase project ID for --verify-credentials (default from the credentials file)")
	rootCmd.AddCommand(registerCmd)
}

type registerOptions struct {
	senderID        string
	credentialsFile string
	firebaseProject string
	useYAML         bool
}

// progressHandler reports attempt progress on stderr.
func progressHandler(stderr io.Writer) gcmutility.HandlerFuncs {
	return gcmutility.HandlerFuncs{
		PreRegister: func() {
			fmt.Fprintln(stderr, "Registering with GCM...")
		},
	}
}

func runRegister(ctx context.Context, rt *runtime, opts registerOptions, stdout, stderr io.Writer) error {
	if opts.senderID == "" {
		return fmt.Errorf("%w: pass --sender or set sender_id / GCM_SENDER_ID", gcmutility.ErrEmptySenderID)
	}

	attempt := rt.manager.RegisterWithHandler(ctx, opts.senderID, progressHandler(stderr))
	res, err := attempt.Wait(ctx)
	if err != nil {
		return err
	}

	out := map[string]any{
		"token":       res.Token,
		"cached":      res.Cached,
		"app_version": rt.cfg.App.Version,
		"sender_id":   opts.senderID,
	}

	if opts.credentialsFile != "" {
		v, err := newVerifier(ctx, opts.credentialsFile, opts.firebaseProject, rt.logger)
		if err != nil {
			return err
		}
		name, err := v.Verify(ctx, res.Token)
		if err != nil {
			return fmt.Errorf("test push failed: %w", err)
		}
		out["verified_message"] = name
	}

	if opts.useYAML {
		yamlOut(stdout, out)
		return nil
	}
	fmt.Fprintf(stdout, "GCM token: %s\n", res.Token)
	if res.Cached {
		fmt.Fprintf(stdout, "Source:    cache (app version %d)\n", rt.cfg.App.Version)
	} else {
		fmt.Fprintf(stdout, "Source:    GCM (saved for app version %d)\n", rt.cfg.App.Version)
	}
	if name, ok := out["verified_message"]; ok {
		fmt.Fprintf(stdout, "Test push: %s\n", name)
	}
	return nil
}
