// Package app wires configuration into the stores, operators and use cases
// shared by the command-line tool and the HTTP server.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"go.ngs.io/climate-indices/internal/adapter/cdo"
	"go.ngs.io/climate-indices/internal/adapter/sink"
	"go.ngs.io/climate-indices/internal/adapter/store"
	"go.ngs.io/climate-indices/internal/adapter/store/native"
	"go.ngs.io/climate-indices/internal/adapter/store/ncfile"
	"go.ngs.io/climate-indices/internal/config"
	"go.ngs.io/climate-indices/internal/usecase"
)

// App holds the wired components of one process.
type App struct {
	Config  *config.Config
	Log     *logrus.Logger
	Loader  store.FieldLoader
	Compute *usecase.ComputeUseCase

	sink *sink.ClickHouse
}

// NewLoader returns the field loader named by reader.
func NewLoader(reader string) (store.FieldLoader, error) {
	switch reader {
	case config.ReaderNetCDF:
		return ncfile.NewStore(), nil
	case config.ReaderNative:
		return native.NewStore(), nil
	}
	return nil, fmt.Errorf("unknown reader %q", reader)
}

// New wires an App from cfg. The ClickHouse sink is connected only when
// enabled; callers must Close the App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := cfg.Logger()
	loader, err := NewLoader(cfg.Reader)
	if err != nil {
		return nil, err
	}
	base, err := cfg.BasePeriod()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, Loader: loader}
	opts := usecase.ComputeOptions{
		Operator:      cdo.NewRunner(cfg.CDOCommand, loader, log.WithField("component", "cdo")),
		DefaultEngine: cfg.Engine,
		DefaultBase:   base,
		Log:           log,

		DefaultTimescale: cfg.Timescale,
	}

	if cfg.ClickHouse.Enabled {
		ch, err := sink.Open(ctx, sink.Config{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Table:    cfg.ClickHouse.Table,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		}, log.WithField("component", "clickhouse"))
		if err != nil {
			return nil, err
		}
		if err := ch.EnsureTable(ctx); err != nil {
			_ = ch.Close()
			return nil, err
		}
		a.sink = ch
		opts.Publisher = ch
		log.WithField("addr", cfg.ClickHouse.Addr).Info("publishing results to ClickHouse")
	}

	a.Compute = usecase.NewComputeUseCase(loader, opts)
	return a, nil
}

// Close releases the sink connection, if any.
func (a *App) Close() error {
	if a.sink != nil {
		return a.sink.Close()
	}
	return nil
}
