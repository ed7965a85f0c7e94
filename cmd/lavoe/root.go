package main

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Skymero/lavoe/logging"
	"github.com/Skymero/lavoe/store"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	cfgFile  string
	storeDir string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:     "lavoe",
	Short:   "Per-note audio feature inference",
	Long:    "lavoe decodes an audio file, segments it into notes and infers key, emotion, pitch, timbre, envelope and dynamics for every note.",
	Version: version,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.lavoe.yaml)")

	rootCmd.PersistentFlags().StringVar(
		&storeDir, "store", "", "analysis store directory (default is $HOME/.lavoe/store)")
	viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))

	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging")
}

// initConfig reads in config file and applies logging verbosity.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".lavoe")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})

	if verbose {
		logging.SetLevel(logging.DebugLevel)
	} else {
		logging.SetLevel(logging.WarnLevel)
	}
}

// openStore resolves the store directory and opens it, defaulting to
// $HOME/.lavoe/store.
func openStore() (store.AnalysisStore, error) {
	dir := storeDir
	if dir == "" {
		dir = viper.GetString("store")
	}
	if dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".lavoe", "store")
	}
	return store.NewStore(dir)
}
