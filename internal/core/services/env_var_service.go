package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvVarService bootstraps a checkout's .env from its .env.example.
type EnvVarService struct {
	logger *slog.Logger
}

func NewEnvVarService(logger *slog.Logger) *EnvVarService {
	return &EnvVarService{logger: logger}
}

// Bootstrap copies .env.example to .env byte for byte when the example
// exists and .env does not. An existing .env is never touched. It reports
// whether a copy happened.
func (s *EnvVarService) Bootstrap(ctx context.Context, projectPath string) (bool, error) {
	example := filepath.Join(projectPath, ".env.example")
	target := filepath.Join(projectPath, ".env")

	if _, err := os.Lstat(target); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", target, err)
	}

	data, err := os.ReadFile(example)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", example, err)
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", target, err)
	}

	// Informational only; a Laravel .env.example that godotenv cannot parse still gets copied.
	if vars, perr := godotenv.UnmarshalBytes(data); perr != nil {
		s.logger.WarnContext(ctx, "Copied .env.example but could not parse it", slog.String("path", example), slog.Any("error", perr))
	} else {
		s.logger.InfoContext(ctx, "Bootstrapped .env from .env.example", slog.String("path", target), slog.Int("variables", len(vars)))
	}
	return true, nil
}
