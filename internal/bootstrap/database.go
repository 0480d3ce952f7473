package bootstrap

import (
	"context"
	"time"

	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/Potenup-community/backend-sub002/internal/infra/persistence"
	"github.com/sirupsen/logrus"
)

func openDatabase(ctx context.Context, cfg config.Config, log *logrus.Logger) (*persistence.DB, error) {
	start := time.Now()
	conn, err := persistence.New(ctx, persistence.Config{
		WriteDSN:           cfg.Database.WriteDSN,
		ReadDSN:            cfg.Database.ReadDSN,
		MaxConns:           cfg.Database.MaxConns,
		MinConns:           cfg.Database.MinConns,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
		Log:                log,
	})
	if err != nil {
		return nil, err
	}

	pingCtx := ctx
	if cfg.Database.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
		defer cancel()
	}
	if err := conn.Ping(pingCtx); err != nil {
		conn.Close()
		return nil, err
	}
	log.Infof("bootstrap: db ready in %s", time.Since(start))
	return conn, nil
}
