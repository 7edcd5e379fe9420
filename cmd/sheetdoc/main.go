// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the sheetdoc CLI.
//
// sheetdoc exports named regions of an XLSX workbook into one DOCX document
// per topic, optionally converts the documents to PDF, and keeps a history
// of runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/sheetdoc/internal/console"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the sheetdoc CLI.
var rootCmd = &cobra.Command{
	Use:   "sheetdoc",
	Short: "Export named workbook regions into per-topic Word documents",
	Long: `sheetdoc walks the pages of an XLSX workbook, looks up a list of defined
names on every page, renders each region it finds to an image and appends it to
<output-dir>/<topic>.docx, where the topic is the part of the region name before
the first underscore (ACL_1 and ACL_2 both go to ACL.docx).

Documents are only ever appended to. Running the same export twice adds every
image twice.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./sheetdoc.yaml or ~/.config/sheetdoc/config.yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable coloured output")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sheetdoc")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sheetdoc"))
		}
	}

	viper.SetEnvPrefix("SHEETDOC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newReporter returns the console writer for command output.
func newReporter(cmd *cobra.Command) console.Reporter {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		return console.NewPlain(cmd.OutOrStdout())
	}
	return console.NewColored(cmd.OutOrStdout())
}

// bindFlags binds each named flag to the config key of the same name with
// dashes turned into underscores.
func bindFlags(flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		key := configKey(name)
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

// stringSetting returns the flag value when the user set it, else the
// config value for the flag's key. Used for keys shared by several
// commands, where a viper binding would follow only the last command.
func stringSetting(cmd *cobra.Command, name string) string {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return f.Value.String()
	}
	return viper.GetString(configKey(name))
}

func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
