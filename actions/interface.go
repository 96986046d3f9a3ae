package actions

import (
	"context"

	"github.com/relloyd/engagement/config"
	"github.com/relloyd/engagement/logger"
	"github.com/relloyd/engagement/rdbms/shared"
)

// ConnectionOpener returns a live warehouse connection for the given settings.
type ConnectionOpener func(ctx context.Context, log logger.Logger, w *config.WarehouseConfig) (shared.Connector, error)

// ConfigGetterSetter is the subset of *config.File used by the default actions.
type ConfigGetterSetter interface {
	Get(key string, out interface{}) error
	Set(key string, val interface{}) error
	Delete(key string) error
	GetAllKeys() ([]string, error)
}
