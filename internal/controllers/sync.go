package controllers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amaumene/gowatch/internal/config"
	"github.com/amaumene/gowatch/internal/metrics"
	"github.com/amaumene/gowatch/internal/models"
	"github.com/amaumene/gowatch/internal/store"
	"github.com/sirupsen/logrus"
)

// Sync directions
const (
	DirectionPull = "pull"
	DirectionPush = "push"
)

// RemoteGateway is the remote spreadsheet API as seen by the sync controller
type RemoteGateway interface {
	Pull(ctx context.Context) ([]models.Record, []string, error)
	Save(ctx context.Context, records []models.Record) error
	Configure(remote config.RemoteConfig)
	Configured() bool
}

// SyncStatus is the user-visible outcome of the last sync
type SyncStatus struct {
	OK        bool      `json:"ok"`
	Direction string    `json:"direction"`
	Message   string    `json:"message"`
	Records   int       `json:"records"`
	Warnings  []string  `json:"warnings,omitempty"`
	At        time.Time `json:"at"`
}

// SyncController moves the full record set between the store and the remote
type SyncController struct {
	store   *store.Store
	remote  RemoteGateway
	metrics *metrics.Metrics
	logger  *logrus.Logger

	// remoteBacked is set when the remote is also the store backend, so a
	// pull is a store reload and a push is a store save.
	remoteBacked bool

	mu   sync.Mutex
	last *SyncStatus
}

// NewSyncController creates a new sync controller
func NewSyncController(st *store.Store, remote RemoteGateway, remoteBacked bool, m *metrics.Metrics, logger *logrus.Logger) *SyncController {
	return &SyncController{
		store:        st,
		remote:       remote,
		metrics:      m,
		logger:       logger,
		remoteBacked: remoteBacked,
	}
}

// Pull replaces the store with the remote contents. On failure the store
// keeps its last good state.
func (c *SyncController) Pull(ctx context.Context) (*SyncStatus, error) {
	c.logger.Info("Starting remote pull")

	var warnings []string
	err := c.ensureConfigured()
	if err == nil {
		if c.remoteBacked {
			err = c.store.Load(ctx)
		} else {
			var records []models.Record
			records, warnings, err = c.remote.Pull(ctx)
			if err == nil {
				err = c.store.Replace(ctx, records)
			}
		}
	}

	for _, w := range warnings {
		c.logger.WithField("warning", w).Warn("Skipped remote row")
	}

	return c.finish(DirectionPull, warnings, err)
}

// Push sends the full store to the remote
func (c *SyncController) Push(ctx context.Context) (*SyncStatus, error) {
	c.logger.Info("Starting remote push")

	err := c.ensureConfigured()
	if err == nil {
		if c.remoteBacked {
			err = c.store.Save(ctx)
		} else {
			err = c.remote.Save(ctx, c.store.Snapshot())
		}
	}

	return c.finish(DirectionPush, nil, err)
}

// ImportRemoteConfig parses a remote config file, points the client at it and
// pulls. A rejected file leaves the current endpoint unchanged.
func (c *SyncController) ImportRemoteConfig(ctx context.Context, data []byte) (*SyncStatus, error) {
	remote, err := config.ParseRemoteConfig(data)
	if err != nil {
		c.logger.WithError(err).Warn("Rejected remote config file")
		return nil, err
	}

	c.remote.Configure(*remote)
	return c.Pull(ctx)
}

// LastStatus returns the outcome of the most recent sync, or nil
func (c *SyncController) LastStatus() *SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	status := *c.last
	return &status
}

func (c *SyncController) ensureConfigured() error {
	if c.remote == nil || !c.remote.Configured() {
		return &models.TransportError{Op: "sync", Err: fmt.Errorf("remote API is not configured")}
	}
	return nil
}

func (c *SyncController) finish(direction string, warnings []string, err error) (*SyncStatus, error) {
	status := &SyncStatus{
		OK:        err == nil,
		Direction: direction,
		Records:   c.store.Len(),
		Warnings:  warnings,
		At:        time.Now(),
	}

	if err != nil {
		status.Message = fmt.Sprintf("Sync failed: %v", err)
		c.logger.WithError(err).WithField("direction", direction).Error("Remote sync failed")
	} else if direction == DirectionPull {
		status.Message = "Data loaded successfully"
		c.logger.WithFields(logrus.Fields{
			"records":  status.Records,
			"warnings": len(warnings),
		}).Info("Remote pull completed")
	} else {
		status.Message = "Data synced successfully"
		c.logger.WithField("records", status.Records).Info("Remote push completed")
	}

	if c.metrics != nil {
		c.metrics.ObserveSync(direction, err)
	}

	c.mu.Lock()
	c.last = status
	c.mu.Unlock()

	return status, err
}
