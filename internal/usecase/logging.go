package usecase

import (
	"context"

	"github.com/rs/zerolog"
)

// loggerFrom returns the logger attached to ctx, or fallback when there is none.
func loggerFrom(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return fallback
}
