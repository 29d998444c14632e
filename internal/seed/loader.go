package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for catalogue files on local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based catalogue loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "seed-loader").Logger(),
	}
}

// Load reads the catalogue file at filePath.
func (l *fileLoader) Load(ctx context.Context, filePath string) (*Catalogue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.logger.Info().Str("file", filePath).Msg("loading seed catalogue")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open seed catalogue")
		return nil, fmt.Errorf("failed to open seed catalogue %s: %w", filePath, err)
	}
	defer file.Close()

	c, err := Decode(file, isGzip(filePath))
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to read seed catalogue")
		return nil, fmt.Errorf("failed to read seed catalogue %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("products", len(c.Products)).
		Int("steps", len(c.Steps)).
		Msg("seed catalogue loaded successfully")

	return c, nil
}
