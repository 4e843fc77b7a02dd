package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"blogposter/cmd/blogposter/commands"
	"blogposter/internal/components/telemetry"
	"blogposter/pkg/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext(context.Background())

	otel, err := telemetry.SetupFromEnv(ctx, "blogposter")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("telemetry disabled", "err", err)
	}
	telemetry.InstrumentPerfStats(ctx)

	err = commands.ExecuteContext(ctx)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if shutdownErr := otel.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Debug("telemetry shutdown", "err", shutdownErr)
	}

	if err != nil {
		os.Exit(1)
	}
}
