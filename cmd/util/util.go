package util

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tasksquire/taskbridge/lib/bridge"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupCommonFlags adds the flags shared by every task command.
func SetupCommonFlags(cmd *cobra.Command) {
	key := "data-dir"
	cmd.PersistentFlags().String(key, defaultDataDir(), WrapString("Directory holding the task database"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("Log level (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("taskbridge")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupLogging configures the process-wide logger from the log-level flag.
func SetupLogging() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// OpenBridge creates a bridge and a handle for the configured data
// directory. The caller must destroy the returned handle.
func OpenBridge() (*bridge.Bridge, uint64, error) {
	b := bridge.New()
	h := b.Initialize(viper.GetString("data-dir"))
	if h == 0 {
		return nil, 0, fmt.Errorf("could not open task database in %s", viper.GetString("data-dir"))
	}
	return b, h, nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskbridge"
	}
	return filepath.Join(home, ".taskbridge")
}
