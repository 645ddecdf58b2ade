package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ClementNerma/rebackup/walker"
)

var (
	watchDebounce time.Duration
	watchTimeout  time.Duration
	watchOutput   string
)

// watchCmd keeps the backup listing up to date while the source tree
// changes.
var watchCmd = &cobra.Command{
	Use:   "watch [options] <source>",
	Short: "Rebuild the backup listing whenever the source tree changes",
	Long: `rebackup watch monitors the source directory and regenerates the backup
listing every time the tree changes. With --output the listing file is
rewritten in place; otherwise each listing is printed to stdout.

Examples:
  rebackup watch /data
  rebackup watch --exclude '*.tmp' --output backup.list /data
  rebackup watch --timeout 1h --debounce 2s /data`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before the listing is rebuilt")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 0, "Duration to watch before exiting (e.g. 1h, 30m)")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Listing file to rewrite on each change (prints to stdout if empty)")
}

func runWatch(source string) error {
	level := walker.LogLevelInfo
	if viper.GetBool("verbose") {
		level = walker.LogLevelDebug
	}
	logger := walker.NewLogger(level)
	defer logger.Sync()

	absSource, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("failed to resolve source path %s: %w", source, err)
	}

	rules, err := makeRules()
	if err != nil {
		return err
	}

	cfg := &walker.Config{
		Rules:          rules,
		FollowSymlinks: viper.GetBool("follow-symlinks"),
		DropEmptyDirs:  viper.GetBool("drop-empty-dirs"),
		Logger:         logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := walker.WatchOptions{
		Debounce: watchDebounce,
		Timeout:  watchTimeout,
	}

	return walker.WatchList(ctx, absSource, cfg, opts, func(ctx context.Context, paths []string) error {
		lines, err := renderPaths(paths, absSource)
		if err != nil {
			return err
		}
		return writeLines(lines, watchOutput)
	})
}
