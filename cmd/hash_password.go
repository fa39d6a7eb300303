/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/auth"
)

// hashPasswordCmd prints a password hash in the configured format, for
// seeding accounts directly in the database.
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Hash a password with the configured algorithm",
	Long: `Hash a password with the configured algorithm. The password is read
from the first argument, or from the first line of stdin when omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()

		hasher, err := auth.NewPasswordHasher(cfg.Auth.PasswordHasher, cfg.Auth.BcryptCost)
		if err != nil {
			return err
		}

		password, err := readPassword(cmd, args)
		if err != nil {
			return err
		}

		hash, err := hasher.Hash(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}

func readPassword(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
