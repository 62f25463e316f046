package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dashmail/internal/cli/commands"
)

var rootCmd = &cobra.Command{
	Use:   "dashmailctl",
	Short: "dashmailctl - control the dashmail report service",
	Long: `dashmailctl talks to a running dashmail instance. It lists the
schedules the service will deliver, shows run history, and can trigger an
immediate delivery for a single schedule.`,
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "Base URL of the dashmail API")
	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewSchedulesCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
}

func initConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".dashmail")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	viper.SetConfigName("cli")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	// A missing config is fine on first run; login creates it.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		viper.SetConfigFile(filepath.Join(configDir, "cli.yaml"))
	}

	return nil
}

func main() {
	if err := initConfig(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
