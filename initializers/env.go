package initializers

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from the given .env files, ".env" when none are
// named. Missing files are skipped. Variables already set are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		switch {
		case err == nil:
			slog.Debug("env file loaded", "file", f)
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("env file not found, skipping", "file", f)
		default:
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}
