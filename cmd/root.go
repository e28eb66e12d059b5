package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joescharf/rebuttal/internal/output"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui     *output.UI
	logger *zap.Logger

	verbose bool
)

// errCheckFailed signals a completed run that found problems. It sets the
// exit code without printing an error.
var errCheckFailed = errors.New("check failed")

var rootCmd = &cobra.Command{
	Use:   "rebuttal",
	Short: "Check that every peer review has a response, and judge how well it is answered",
	Long: `rebuttal checks a directory of peer reviews against a directory of author
responses. Every review file must have a response file with the same name.

With --judge, a language model splits each review into its individual
comments and decides, over --n independent trials, whether the response
fully addresses each one. The paper (--paper) is attached as context.

Exit status is 0 when every review has a response and, when judging,
every response passes; 1 otherwise.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	Args:              cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := checkOptionsFromConfig(cmd.Flags())
		if err != nil {
			return err
		}
		return checkRun(cmd.Context(), opts)
	},
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code := exitCode(ctx, rootCmd.ExecuteContext(ctx), os.Stderr)
	if logger != nil {
		_ = logger.Sync()
	}
	if code != 0 {
		stop()
		os.Exit(code)
	}
}

// exitCode reports the outcome of a run on errOut and returns the process
// exit status. An interrupted run prints only the interruption notice.
func exitCode(ctx context.Context, err error, errOut io.Writer) int {
	switch {
	case ctx.Err() != nil:
		fmt.Fprintln(errOut, output.Red("Interrupted by user."))
		return 1
	case errors.Is(err, errCheckFailed):
		return 1
	case err != nil:
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/rebuttal/config.yaml)")

	pf := rootCmd.PersistentFlags()
	pf.String("reviews", "reviews", "Directory of review files")
	pf.String("responses", "responses", "Directory of response files")
	pf.String("match", "exact", "Key matching: exact (full file name) or stem (ignore extension)")

	f := rootCmd.Flags()
	f.String("paper", "", "Paper to give the judge as context (PDF attached as a document, other files as text)")
	f.Int("n", 1, "Independent judge trials per review comment")
	f.Bool("judge", false, "Judge each response with a language model")
	f.String("format", "text", "Report format: text, json, or yaml")
	f.Bool("no-split", false, "Judge each review as a whole instead of comment by comment")
	f.Int("concurrency", 8, "Maximum concurrent model calls")
	f.Duration("timeout", 0, "Timeout per model call (default from config, 5m)")
	f.String("provider", "", "Model provider: anthropic or gemini")
	f.String("model", "", "Model name (default depends on provider)")

	bindFlags()
}

// bindFlags connects command-line flags to their viper keys.
func bindFlags() {
	bindFlag("paths.reviews", "reviews")
	bindFlag("paths.responses", "responses")
	bindFlag("paths.paper", "paper")
	bindFlag("judge.trials", "n")
	bindFlag("judge.enabled", "judge")
	bindFlag("match", "match")
	bindFlag("format", "format")
	bindFlag("judge.concurrency", "concurrency")
	bindFlag("provider", "provider")
	bindFlag("model", "model")
}

func bindFlag(key, flag string) {
	f := rootCmd.PersistentFlags().Lookup(flag)
	if f == nil {
		f = rootCmd.Flags().Lookup(flag)
	}
	if err := viper.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REBUTTAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default value.
func setDefaults() {
	viper.SetDefault("provider", "anthropic")
	viper.SetDefault("model", "")
	viper.SetDefault("match", "exact")
	viper.SetDefault("format", "text")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("anthropic.base_url", "")
	viper.SetDefault("gemini.base_url", "")
	viper.SetDefault("judge.enabled", false)
	viper.SetDefault("judge.trials", 1)
	viper.SetDefault("judge.concurrency", 8)
	viper.SetDefault("judge.timeout", "5m")
	viper.SetDefault("judge.split_comments", true)
	viper.SetDefault("judge.max_retries", 2)
}

func initDeps() {
	ui = output.New()
	ui.Out = rootCmd.OutOrStdout()
	ui.ErrOut = rootCmd.ErrOrStderr()
	ui.Verbose = verbose

	var err error
	logger, err = newLogger(verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		logger = zap.NewNop()
	}
}

// newLogger builds the structured logger used by the judge. It writes to
// stderr at warn level, or debug level when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rebuttal"), nil
}
