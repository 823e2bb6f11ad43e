// Package cli is the cobra command tree of the sqldrill binary.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sqldrill",
		Short: "SQL exercise grading engine",
		Long: `sqldrill grades SQL exercises: it runs learner queries against per-session
practice databases, validates the results or the resulting schema against each
exercise's declarative rule, and turns raw database errors into teachable
diagnostics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sqldrill.yaml)")

	cobra.OnInitialize(initConfig)

	// Add subcommands
	cmd.AddCommand(newServeCmd(version))
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newExerciseCmd())
	cmd.AddCommand(newGradeCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sqldrill")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.sqldrill")
	}

	viper.SetEnvPrefix("SQLDRILL")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
