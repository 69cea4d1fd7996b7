package config

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the startup banner and logs the same facts structurally.
func PrintBanner(cfg *Config, logger arbor.ILogger, role string) {
	serviceURL := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(72)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("CNE PIPELINE")
	b.PrintCenteredText("Nomination Document Processing")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Role", role, 15)
	b.PrintKeyValue("Environment", cfg.Environment, 15)
	b.PrintKeyValue("Data Dir", cfg.Storage.DataDir, 15)
	if role == "api" {
		b.PrintKeyValue("Service URL", serviceURL, 15)
	}
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("role", role).
		Str("environment", cfg.Environment).
		Str("data_dir", cfg.Storage.DataDir).
		Str("service_url", serviceURL).
		Msg("application started")
}

// PrintShutdownBanner displays the shutdown banner.
func PrintShutdownBanner(logger arbor.ILogger, role string) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("CNE PIPELINE")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Str("role", role).Msg("application shutting down")
}
