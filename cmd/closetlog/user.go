package main

import (
	"errors"
	"fmt"

	"github.com/closetlog/internal/config"
	"github.com/closetlog/internal/db"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var (
	userPassword string
	userIfAbsent bool
)

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(userPassword) < 6 {
			return fmt.Errorf("--password must be at least 6 characters")
		}

		gdb, err := openDatabase(config.Load())
		if err != nil {
			return err
		}

		user, err := db.CreateUser(gdb, args[0], userPassword)
		if err != nil {
			if errors.Is(err, db.ErrUserExists) && userIfAbsent {
				fmt.Printf("%s user %q already exists, skipped\n", color.YellowString("ℹ"), args[0])
				return nil
			}
			return fmt.Errorf("create user: %w", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s created user %s (id %d)\n", green("✓"), user.Username, user.ID)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "Account password")
	userAddCmd.Flags().BoolVar(&userIfAbsent, "if-absent", false, "Do nothing when the username is taken")
	_ = userAddCmd.MarkFlagRequired("password")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
