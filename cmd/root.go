package cmd

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Itish41/DocIntel/initializers"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docintel",
	Short: "Document ingestion pipeline and keyword QA service",
	Long: `DocIntel stores uploaded documents, extracts their text in background
workers, indexes them for search and answers keyword questions with
ranked snippets.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbose)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "docintel.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setupLogging installs the default slog logger: JSON at info level, or
// text at debug level when verbose.
func setupLogging(verbose bool) {
	var handler slog.Handler
	if verbose {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		gin.SetMode(gin.DebugMode)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(handler))
}

func loadConfig() (*initializers.Config, error) {
	cfg, err := initializers.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	slog.Debug("configuration loaded",
		"storage", cfg.Storage.Backend,
		"queue", cfg.Queue.Backend,
		"search", cfg.Search.Backend,
		"qa_variant", cfg.QA.Variant,
	)
	return cfg, nil
}
