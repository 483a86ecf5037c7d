package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/set-night/assistant/internal/config"
	"gopkg.in/lumberjack.v2"
)

// Init installs a JSON slog handler as the process default. Output goes to stdout and,
// when LOG_FILE is set, to a size-rotated file as well.
func Init(cfg *config.Config) {
	writers := []io.Writer{os.Stdout}
	if cfg.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			LocalTime:  true,
		})
	}

	h := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)})
	slog.SetDefault(slog.New(h))
	slog.Info("logger initialized", "level", cfg.LogLevel, "file", cfg.LogFile)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
