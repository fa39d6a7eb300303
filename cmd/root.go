/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/OkanBey11/ToDoApiWithGemini/config"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "todo",
	Short: "Multi-user to-do API",
	Long: `Multi-user to-do API with password login and bearer tokens.

	todo migrate up
	todo server
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the process configuration and builds the logger from it.
func loadConfig() (config.Config, *logrus.Logger) {
	cfg := config.LoadConfig()
	return cfg, logging.New(cfg.Log)
}

func init() {
	// Here you will define your flags and configuration settings.
	// Cobra supports persistent flags, which, if defined here,
	// will be global for your application.
}
