//go:build !darwin && !linux

package sandbox

import "log/slog"

func getPlatformBackend(logger *slog.Logger) Backend {
	return NewNoopBackend(logger)
}
