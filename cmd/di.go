package cmd

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/LaCapitainerie/openvasreporting/internal/config"
	"github.com/LaCapitainerie/openvasreporting/internal/export"
	"github.com/LaCapitainerie/openvasreporting/internal/openvas"
)

func initConverter(cfg *config.Config, log *zap.Logger) (*openvas.Parser, *export.Registry, error) {
	var (
		parser   *openvas.Parser
		registry *export.Registry
	)
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, log),
		openvas.Module,
		export.Module,
		fx.Populate(&parser, &registry),
	)
	if err := app.Err(); err != nil {
		return nil, nil, err
	}
	return parser, registry, nil
}
