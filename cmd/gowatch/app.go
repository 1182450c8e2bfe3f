package main

import (
	"context"
	"fmt"

	"github.com/amaumene/gowatch/internal/config"
	"github.com/amaumene/gowatch/internal/controllers"
	"github.com/amaumene/gowatch/internal/metrics"
	"github.com/amaumene/gowatch/internal/models"
	"github.com/amaumene/gowatch/internal/services/sheets"
	"github.com/amaumene/gowatch/internal/store"
	"github.com/amaumene/gowatch/internal/utils"
	"github.com/sirupsen/logrus"
)

// app holds everything a command needs, wired by hand
type app struct {
	cfg    *config.Config
	logger *logrus.Logger

	db      *models.Database // nil with the remote backend
	sheets  *sheets.Client
	store   *store.Store
	metrics *metrics.Metrics

	form     *controllers.FormController
	sync     *controllers.SyncController
	transfer *controllers.TransferController
}

// newApp loads configuration, opens the backend and loads the store.
// strictLoad makes a failed initial load fatal; otherwise the store starts
// empty and the failure is logged.
func newApp(ctx context.Context, strictLoad bool) (*app, error) {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.WithFields(logrus.Fields{
		"config_dir": cfg.ConfigDir,
		"backend":    cfg.Backend,
	}).Debug("Configuration loaded")

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		sheets:  sheets.NewClient(cfg, logger),
	}

	// 3. Initialize backend and store
	var backend store.Backend = a.sheets
	if !cfg.IsRemote() {
		db, err := models.NewDatabase(cfg.DatabaseFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.db = db
		backend = db
		logger.WithField("path", cfg.DatabaseFile).Debug("Database initialized")
	}

	a.store = store.New(backend, logger)
	a.store.OnCommit(a.metrics.SetRecordCounts)
	if err := a.store.Load(ctx); err != nil {
		if strictLoad {
			a.Close()
			return nil, err
		}
		logger.WithError(err).Warn("Starting with an empty store, changes are refused until a pull succeeds")
	}

	// 4. Initialize controllers
	a.form = controllers.NewFormController(a.store, logger)
	a.sync = controllers.NewSyncController(a.store, a.sheets, cfg.IsRemote(), a.metrics, logger)
	a.transfer = controllers.NewTransferController(a.store, logger)

	return a, nil
}

// Close releases the database file
func (a *app) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Failed to close database")
	}
}
