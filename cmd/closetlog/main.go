package main

import (
	"fmt"
	"os"

	"github.com/closetlog/internal/config"
	"github.com/closetlog/internal/db"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "closetlog",
	Short: "closetlog tracks what you own and what you actually wear",
	Long: `closetlog is a wardrobe tracker: log outfits from photos, let the vision
model recognise the garments, and see which clothes never leave the closet.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (defaults to DATABASE_PATH)")
}

// openDatabase 打开数据库，--db 优先于环境变量。
func openDatabase(cfg config.AppConfig) (*gorm.DB, error) {
	path := cfg.DatabasePath
	if dbPath != "" {
		path = dbPath
	}
	gdb, err := db.Open(path, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return gdb, nil
}
