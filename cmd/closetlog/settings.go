package main

import (
	"fmt"

	"github.com/closetlog/internal/config"
	"github.com/closetlog/internal/service"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change server-wide settings",
}

var (
	visionProvider     string
	visionGeminiKey    string
	visionAnthropicKey string
	visionModel        string
)

var settingsVisionCmd = &cobra.Command{
	Use:   "vision",
	Short: "Show or update the vision provider used for outfit analysis",
	Long: `Without flags, prints the active vision settings. Any flag switches to
update mode; values left empty fall back to the environment defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		gdb, err := openDatabase(cfg)
		if err != nil {
			return err
		}

		settings := service.NewSystemSettingService(gdb, service.VisionSettings{
			Provider:        cfg.VisionProvider,
			GeminiAPIKey:    cfg.GeminiAPIKey,
			AnthropicAPIKey: cfg.AnthropicAPIKey,
			Model:           cfg.VisionModel(),
		})

		ctx := cmd.Context()
		var current service.VisionSettings
		if cmd.Flags().NFlag() == 0 {
			current, err = settings.GetVisionSettings(ctx)
		} else {
			current, err = settings.UpdateVisionSettings(ctx, service.VisionSettings{
				Provider:        visionProvider,
				GeminiAPIKey:    visionGeminiKey,
				AnthropicAPIKey: visionAnthropicKey,
				Model:           visionModel,
			})
		}
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		status := color.GreenString("configured")
		if current.APIKey() == "" {
			status = color.RedString("missing api key")
		}
		fmt.Printf("%s %s (%s)\n", cyan("provider:"), current.Provider, status)
		fmt.Printf("%s %s\n", cyan("model:   "), current.Model)
		return nil
	},
}

func init() {
	settingsVisionCmd.Flags().StringVar(&visionProvider, "provider", "", "gemini or anthropic")
	settingsVisionCmd.Flags().StringVar(&visionGeminiKey, "gemini-key", "", "Gemini API key")
	settingsVisionCmd.Flags().StringVar(&visionAnthropicKey, "anthropic-key", "", "Anthropic API key")
	settingsVisionCmd.Flags().StringVar(&visionModel, "model", "", "Model name override")
	settingsCmd.AddCommand(settingsVisionCmd)
	rootCmd.AddCommand(settingsCmd)
}
