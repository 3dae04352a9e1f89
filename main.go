package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/patchnotifier/patch-notifier/pkg/cmd"
	"github.com/patchnotifier/patch-notifier/pkg/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Globals for verbose logging flag and version reporting.
var (
	verbose bool
	version string
)

func newRootCmd() *cobra.Command {
	rootCmd := cmd.NewNotifyCmd()
	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	}
	rootCmd.Version = version

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose_mode", "v", false, "enable debug level logging")
	return rootCmd
}

func initConfig() {
	if err := loadDotEnv(); err != nil {
		log.Warnf("Failed to load .env: %v", err)
	}
	config.Environment(viper.GetViper())
}

// loadDotEnv fills unset variables from .env in the working directory.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cobra.OnInitialize(initConfig)
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Errorf("Error: %v", err)
		stop()
		os.Exit(1)
	}
}
