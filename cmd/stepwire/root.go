package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rawbytedev/stepwire"
	"github.com/rawbytedev/stepwire/format/lefixed"
	"github.com/rawbytedev/stepwire/format/varint"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GlobalFlags are shared by every subcommand.
type GlobalFlags struct {
	Format  string
	Trickle bool
	Verbose bool
}

var (
	globalFlags GlobalFlags
	log         *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stepwire",
	Short: "Encode and decode inventory documents with resumable codecs",
	Long: `stepwire converts inventory documents between YAML and a binary wire
format. Every transfer goes through non-blocking codecs; --trickle makes the
sink or source accept a single byte every other call to exercise suspension.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		log, err = newLogger(globalFlags.Verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		stepwire.SetLogger(log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Format, "format", "f", "lefixed", "wire format: lefixed|varint")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Trickle, "trickle", false, "transfer one byte every other call")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(roundtripCmd)
	rootCmd.AddCommand(profileCmd)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func wireFormat(name string) (stepwire.Format, error) {
	switch name {
	case "lefixed":
		return lefixed.Format{}, nil
	case "varint":
		return varint.Format{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", name)
	}
}
