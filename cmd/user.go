/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/db"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/store"
)

// userCmd groups account administration commands.
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Administer user accounts",
}

var userActivateCmd = &cobra.Command{
	Use:   "activate <user-id>",
	Short: "Allow a user to log in again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUserActive(cmd, args[0], true)
	},
}

var userDeactivateCmd = &cobra.Command{
	Use:   "deactivate <user-id>",
	Short: "Prevent a user from logging in",
	Long: `Prevent a user from logging in. Tokens issued before deactivation stay
valid until they expire.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUserActive(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userActivateCmd, userDeactivateCmd)
}

func setUserActive(cmd *cobra.Command, rawID string, active bool) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id < 1 {
		return fmt.Errorf("invalid user id %q", rawID)
	}

	cfg, logger := loadConfig()
	conn, err := db.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := store.NewUserRepository(conn).SetActive(cmd.Context(), id, active); err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	logger.WithFields(logrus.Fields{"user_id": id, "active": active}).Info("user updated")
	return nil
}
