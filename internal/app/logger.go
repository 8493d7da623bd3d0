package app

import (
	"github.com/gmsas95/ledgerbot/internal/config"
	"go.uber.org/zap"
)

// NewLogger builds a console logger, or a JSON one when log.format is json
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}
