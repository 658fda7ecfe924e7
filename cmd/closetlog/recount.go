package main

import (
	"fmt"

	"github.com/closetlog/internal/config"
	"github.com/closetlog/internal/db"
	"github.com/closetlog/internal/service"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var recountCmd = &cobra.Command{
	Use:   "recount",
	Short: "Rebuild garment use counts from outfit links",
	Long: `Use counts are adjusted one garment at a time when outfits are created or
deleted, so a failed update can leave them off by one. recount recomputes every
garment's count from the outfit links, for all users.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := openDatabase(config.Load())
		if err != nil {
			return err
		}

		var users []db.User
		if err := gdb.WithContext(cmd.Context()).Find(&users).Error; err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		outfits := service.NewOutfitService(db.NewWardrobeStore(gdb))
		total := 0
		for _, user := range users {
			fixed, err := outfits.RecountUseCounts(cmd.Context(), user.ID)
			if err != nil {
				return fmt.Errorf("recount user %s: %w", user.Username, err)
			}
			if fixed > 0 {
				fmt.Printf("  %s: %d garments corrected\n", user.Username, fixed)
			}
			total += fixed
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s %d garments corrected across %d users\n", green("✓"), total, len(users))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recountCmd)
}
