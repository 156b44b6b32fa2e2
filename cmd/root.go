package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/magicat777/vocal-prime/configs"
	"github.com/magicat777/vocal-prime/logging"
)

var (
	configFile   string
	verbose      bool
	logLevel     string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vocal-prime",
	Short: "Real-time vocal analysis engine",
	Long: `vocal-prime analyzes a PCM audio stream into perceptually meaningful
measurements: log-frequency spectrum, autocorrelation pitch, vibrato rate
and extent, formant frequencies, and composite voice quality metrics
(presence, dynamics, clarity, intensity).

The engine itself is a library; this CLI feeds local audio files through
it for offline analysis and inspection.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.ParseLevel(logLevel)
		if verbose {
			level = logging.DebugLevel
		}
		logging.GetGlobalLogger().SetLevel(level)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default uses built-in defaults plus VOCAL_PRIME_* env)")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json",
		"output format (json, yaml)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// loadConfig builds the engine configuration from the --config flag
func loadConfig() (*configs.Config, error) {
	cfg, err := configs.Load(configFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
