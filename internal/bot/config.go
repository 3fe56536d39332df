package bot

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Only this chat may use the bot
	OwnerChatID int64
	// Base URL of the web app that share links point to
	ShareBaseURL string
	// Themes accepted by /theme and /resume, nil means transport.DefaultThemes
	Themes []string
	// Long polling timeout in seconds
	UpdateTimeout int
	Debug         bool
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		ShareBaseURL:  "https://musclecards.app/",
		UpdateTimeout: 60,
	}
}
