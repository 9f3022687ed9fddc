// Package cmd provides the xtpl command-line interface.
//
// Configuration is read from, in order of precedence:
//
//  1. command-line flags (--root, --compiler, --port, ...)
//  2. XTPL_<SECTION>_<OPTION> environment variables (XTPL_SERVER_PORT, ...)
//  3. the configuration file: --config, else XTPL_CONFIG_FILE, else .xtpl.yml
//     in the current directory
//  4. built-in defaults
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "xtpl",
	Short: "Compose multi-partial templates with inheritance and includes",
	Long: `xtpl composes template files made of named partials. A file can extend
another, include partials from the files it requires, and wrap partials in
shared wrappers.

Quick Start:
  xtpl render pages/home            Render the main partial of pages/home.html
  xtpl render pages/home:title      Render one partial
  xtpl inspect pages/home           Show partials and dependencies
  xtpl build                        Render every template into dist/
  xtpl serve                        Preview templates with live reload`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .xtpl.yml, can also use XTPL_CONFIG_FILE env var)")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("root", "templates", "directory template ids are resolved against")
	flags.String("base-url", "", "fetch templates over HTTP from this URL instead of --root")
	flags.String("compiler", "identity", "compiler applied to composed partials (identity, html, gotemplate)")

	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("source.root", flags.Lookup("root"))
	_ = viper.BindPFlag("source.base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("engine.compiler", flags.Lookup("compiler"))
}

// initConfig selects the configuration file and enables XTPL_ environment
// overrides. A missing default file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("XTPL_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".xtpl")
	}

	viper.SetEnvPrefix("XTPL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
