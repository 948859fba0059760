package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/braydenmsue/cacheroyale-pomodoro/internal/auth"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/capture"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/config"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/db"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/gaze"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/recommend"
	"github.com/braydenmsue/cacheroyale-pomodoro/internal/sampler"
)

var (
	loadConfig         = config.Load
	runMigrations      = db.RunMigrations
	rollbackMigrations = db.RollbackMigrations
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "focusctl",
		Short:         "Operator tooling for the focus pomodoro backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newRecommendCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	migrate := &cobra.Command{Use: "migrate", Short: "Manage the database schema"}
	migrate.PersistentFlags().StringVar(&databaseURL, "database-url", "", "postgres url (defaults to POSTGRES_URL)")

	resolve := func() string {
		if databaseURL != "" {
			return databaseURL
		}
		return loadConfig().PostgresURL
	}

	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := runMigrations(resolve()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})
	migrate.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rollbackMigrations(resolve()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
			return nil
		},
	})
	return migrate
}

func newTokenCmd() *cobra.Command {
	var secret, subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for the tracking control routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = loadConfig().JWTSecret
			}
			token, err := auth.NewIssuer(secret).Issue(subject, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (defaults to JWT_SECRET)")
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}

func newReplayCmd() *cobra.Command {
	var sessionID string
	var fps float64
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Classify a recorded landmark file and print its focus samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fps <= 0 {
				return errors.New("fps must be positive")
			}
			return replay(cmd.Context(), cmd.OutOrStdout(), args[0], sessionID, fps, interval)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "replay", "session id stamped on samples")
	cmd.Flags().Float64Var(&fps, "fps", 30, "recorded frame rate")
	cmd.Flags().DurationVar(&interval, "interval", sampler.DefaultInterval, "sample interval")
	return cmd
}

// replay runs the file unpaced and derives frame times from fps, so a long
// recording is scored in one pass.
func replay(ctx context.Context, out io.Writer, path, sessionID string, fps float64, interval time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dev, err := capture.ReplayOpener{Path: path}.Open(ctx)
	if err != nil {
		return err
	}
	defer dev.Close()

	start := time.Unix(0, 0).UTC()
	frameGap := time.Duration(float64(time.Second) / fps)
	s := sampler.New(sessionID, interval, start)
	detector := capture.MeshDetector{}
	enc := json.NewEncoder(out)

	var frames int
	for {
		frame, err := dev.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		frames++

		focused := false
		if pts, ok := detector.Detect(frame); ok {
			focused = gaze.ClassifyMesh(pts)
		}
		if sample, ok := s.Observe(start.Add(time.Duration(frame.Seq)*frameGap), focused); ok {
			if err := enc.Encode(sample); err != nil {
				return err
			}
		}
	}

	total, focusedChecks := s.Counts()
	_, err = fmt.Fprintf(out, "frames=%d samples=%d focused=%d focus_percentage=%.1f\n",
		frames, total, focusedChecks, s.Percentage())
	return err
}

func newRecommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <score>",
		Short: "Print the break recommended for a focus score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var score float64
			if _, err := fmt.Sscanf(args[0], "%g", &score); err != nil {
				return fmt.Errorf("invalid score %q: %w", args[0], err)
			}
			if score < 0 || score > 1 {
				return fmt.Errorf("score %v outside [0,1]", score)
			}
			rec := recommend.ForScore(score)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d seconds (%.0f minutes)\n",
				rec.RecommendedBreakSeconds, rec.RecommendedBreakMinutes)
			return nil
		},
	}
}
