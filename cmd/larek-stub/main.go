package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/larek/internal/stub"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := stub.LoadConfig()
		if err != nil {
			return err
		}
		s, err := stub.NewServer(ctx, lg, m, cfg)
		if err != nil {
			return err
		}
		return s.Run(ctx)
	})
}
