package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/ledger-recon/internal/common"
	"github.com/Veraticus/ledger-recon/internal/config"
	"github.com/Veraticus/ledger-recon/internal/jobclient"
	"github.com/Veraticus/ledger-recon/internal/service"
	"github.com/Veraticus/ledger-recon/internal/storage"
)

// initClient builds the job service client from configuration.
func initClient() *jobclient.Client {
	return jobclient.New(viper.GetString("server.url"))
}

// initRunLog opens the local run log, running migrations.
func initRunLog(ctx context.Context) (service.RunLog, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	} else {
		dbPath = config.ExpandPath(dbPath)
	}

	runLog, err := storage.NewSQLiteRunLog(dbPath)
	if err != nil {
		return nil, err
	}

	if err := runLog.Migrate(ctx); err != nil {
		_ = runLog.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return runLog, nil
}

// requireService checks the service health once. One-shot commands use it
// so a down service reads as such instead of a request failure.
func requireService(ctx context.Context, client *jobclient.Client) error {
	if !client.Health(ctx) {
		return common.NewUserError(
			fmt.Sprintf("reconciliation service at %s is not responding", viper.GetString("server.url")),
			common.ErrServiceUnavailable)
	}
	return nil
}

// waitForService blocks briefly until the job service answers its health
// check, so commands fail with a clear message instead of a poll timeout.
func waitForService(ctx context.Context, client *jobclient.Client) error {
	err := common.WithRetry(ctx, func() error {
		if !client.Health(ctx) {
			return common.ErrServiceUnavailable
		}
		return nil
	}, service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	})
	if err != nil {
		return common.NewUserError(
			fmt.Sprintf("reconciliation service at %s is not responding", viper.GetString("server.url")),
			err)
	}
	return nil
}
