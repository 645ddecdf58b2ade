// Package cmd implements the rebackup command line interface.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/unicode/norm"

	"github.com/ClementNerma/rebackup/walker"
)

var (
	cfgFile string
	version = "1.0.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rebackup [options] <source>",
	Short: "Build the list of files to back up from a source directory",
	Long: `rebackup walks a source directory and prints the ordered list of paths
that would enter a backup, one per line, ready to pipe into an archiving
tool. Rules (shell filters, gitignore-style patterns, ignore files) decide
which items are kept, dropped or renamed in the output.`,
	Version:      version,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(args[0])
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Output flags
	rootCmd.Flags().StringP("output", "o", "", "Output file (prints to stdout if empty)")
	rootCmd.Flags().Bool("dry-run", false, "Walk without printing or writing the listing")

	// Flags shared with subcommands
	pf := rootCmd.PersistentFlags()
	pf.BoolP("absolute", "a", false, "Output absolute paths (default is relative to the source)")
	pf.StringP("prefix", "p", "", "Prefix all output lines with a string")
	pf.BoolP("follow-symlinks", "s", false, "Follow symbolic links")
	pf.Bool("drop-empty-dirs", false, "Drop directories whose subtree contributed nothing")
	pf.BoolP("verbose", "v", false, "Display debug information")
	pf.Bool("ignore-non-utf8", false, "Skip items with invalid UTF-8 names")
	pf.Bool("allow-non-utf8", false, "Render invalid UTF-8 names lossily instead of failing")
	pf.Bool("normalize-unicode", false, "NFC-normalize output paths")

	// Rule flags, evaluated in order: shell filters, ignore file, includes, excludes
	pf.StringArrayP("filter-with", "f", nil, "Exclude items when the command fails (item path in REBACKUP_ITEM)")
	pf.String("shell", "", "Shell binary used for --filter-with commands")
	pf.StringArray("shell-head-args", nil, "Shell arguments placed before the command")
	pf.StringArray("shell-tail-args", nil, "Shell arguments placed after the command")
	pf.Bool("display-shell-output", false, "Print filter commands' stdout and stderr")
	pf.String("ignore-file", "", "Gitignore-style rules file")
	pf.StringArray("include", nil, "Definitively include items matching a gitignore-style pattern")
	pf.StringArray("include-only", nil, "Only include items matching a gitignore-style pattern")
	pf.StringArrayP("exclude", "e", nil, "Exclude items matching a gitignore-style pattern")

	// Bind flags to viper
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("dry-run", rootCmd.Flags().Lookup("dry-run"))
	for _, name := range []string{
		"absolute", "prefix", "follow-symlinks", "drop-empty-dirs", "verbose",
		"ignore-non-utf8", "allow-non-utf8", "normalize-unicode",
		"filter-with", "shell", "shell-head-args", "shell-tail-args",
		"display-shell-output", "ignore-file", "include", "include-only", "exclude",
	} {
		viper.BindPFlag(name, pf.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in home directory with name ".rebackup" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rebackup")
	}

	viper.SetEnvPrefix("REBACKUP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine. Nothing is printed either way so
	// stdout stays a clean path list.
	_ = viper.ReadInConfig()
}

func runList(source string) error {
	level := walker.LogLevelError
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

	paths, err := walker.Walk(absSource, cfg)
	if err != nil {
		return fmt.Errorf("failed to build files list: %w", err)
	}

	lines, err := renderPaths(paths, absSource)
	if err != nil {
		return err
	}

	if viper.GetBool("dry-run") {
		return nil
	}

	return writeLines(lines, viper.GetString("output"))
}

// writeLines prints the rendered listing to stdout or writes it to a file.
func writeLines(lines []string, output string) error {
	if output != "" {
		data := strings.Join(lines, "\n") + "\n"
		if err := os.WriteFile(output, []byte(data), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}

	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

// renderPaths converts walker output into printable lines: relative or
// absolute form, optional prefix, Unicode normalization, and the configured
// non-UTF-8 policy.
func renderPaths(paths []string, source string) ([]string, error) {
	absolute := viper.GetBool("absolute")
	prefix := viper.GetString("prefix")
	normalize := viper.GetBool("normalize-unicode")
	ignoreNonUTF8 := viper.GetBool("ignore-non-utf8")
	allowNonUTF8 := viper.GetBool("allow-non-utf8")

	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		line := p
		if !absolute {
			// Mapped paths may already be relative or live outside the
			// source; those are kept verbatim.
			if rel, err := filepath.Rel(source, p); err == nil && rel != ".." && !strings.HasPrefix(rel, "../") {
				line = rel
			}
		}

		if !utf8.ValidString(line) {
			switch {
			case ignoreNonUTF8:
				continue
			case allowNonUTF8:
				line = strings.ToValidUTF8(line, string(utf8.RuneError))
			default:
				return nil, fmt.Errorf("invalid UTF-8 in item name: %q", line)
			}
		}

		if normalize {
			line = norm.NFC.String(line)
		}

		lines = append(lines, prefix+line)
	}
	return lines, nil
}
