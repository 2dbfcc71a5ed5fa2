package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/qbwriter/internal/adapter/quickbooks"
	"github.com/iho/qbwriter/internal/adapter/state"
	"github.com/iho/qbwriter/internal/adapter/table"
	"github.com/iho/qbwriter/internal/domain"
	"github.com/iho/qbwriter/internal/infrastructure/config"
	"github.com/iho/qbwriter/internal/infrastructure/logger"
	"github.com/iho/qbwriter/internal/usecase"
)

const version = "2.0.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "qbwriter",
		Short:         "QuickBooks Online writer",
		Long:          `Reads CSV input tables and writes journal entries and invoices to the QuickBooks Online API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process the configured input tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "config.yaml", "Path to the run configuration file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the connector version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(runCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(domain.ExitCode(err))
	}
}

func run(ctx context.Context, configPath string) error {
	envCfg, err := config.LoadEnv()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{Level: envCfg.LogLevel, Format: envCfg.LogFormat})

	manifest, err := config.LoadManifest(configPath)
	if err != nil {
		return err
	}

	ops, err := manifest.Operations()
	if err != nil {
		return err
	}

	endpoints := make([]usecase.Endpoint, 0, len(ops))
	for _, op := range ops {
		path := filepath.Join(manifest.InputDir, op.TableName())
		if _, err := os.Stat(path); err != nil {
			return domain.NewConfigError("input table for endpoint %s not found, expected %s", op.Endpoint(), path)
		}
		endpoints = append(endpoints, usecase.Endpoint{Op: op, TablePath: path})
	}

	grant, err := state.LoadGrant(manifest.OAuthFile)
	if err != nil {
		return err
	}

	fileStore := state.NewFileStore(manifest.StateFile)
	persisted, err := fileStore.Load()
	if err != nil {
		return err
	}

	client := quickbooks.New(quickbooks.Config{
		CompanyID: manifest.CompanyID,
		AppKey:    envCfg.AppKey,
		AppSecret: envCfg.AppSecret,
		Sandbox:   manifest.Sandbox,
		Strict:    manifest.FailOnError,
	}, log)

	// Sandbox tokens never reach the platform state API, matching the
	// original connector behavior.
	var remote usecase.RemoteStateStore
	if !manifest.Sandbox && envCfg.StorageToken != "" {
		remote = state.NewRemoteStore(state.RemoteConfig{
			EncryptionHost: envCfg.EncryptionHost,
			StorageHost:    envCfg.StorageHost,
			StorageToken:   envCfg.StorageToken,
			ComponentID:    envCfg.ComponentID,
			ProjectID:      envCfg.ProjectID,
			ConfigID:       envCfg.ConfigID,
			BranchID:       envCfg.BranchID,
		}, log)
	}

	in := usecase.RunInput{
		Grant:     grant,
		Persisted: persisted,
		Endpoints: endpoints,

		FailOnError: manifest.FailOnError,
		StartedAt:   time.Now().UTC(),
	}

	var errorWriter *table.ErrorWriter
	if !manifest.FailOnError {
		if err := os.MkdirAll(manifest.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		errorWriter, err = table.NewErrorWriter(filepath.Join(manifest.OutputDir, "errors.csv"))
		if err != nil {
			return err
		}
		in.Errors = errorWriter
	}

	if err := os.MkdirAll(filepath.Dir(manifest.StateFile), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tokens := usecase.NewTokenUseCase(client, log)
	runUC := usecase.NewRunUseCase(tokens, client, table.Source{}, fileStore, remote, log)

	result, runErr := runUC.Run(ctx, in)

	// The error table is finalized even when the run aborts, so downstream
	// consumers always find the artifact.
	if errorWriter != nil {
		if closeErr := errorWriter.Close(); closeErr != nil && runErr == nil {
			runErr = closeErr
		}
	}
	if runErr != nil {
		return runErr
	}

	logSummary(log, result)
	return nil
}

func logSummary(log zerolog.Logger, result usecase.RunResult) {
	log.Info().
		Int("groups", result.Groups).
		Int("failed", result.Failed).
		Bool("token_rotated", result.Token.Rotated).
		Msg("connector finished")
}
