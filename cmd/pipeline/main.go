// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package main is the batch CLI of the travel knowledge pipeline. Each
// subcommand drains a document collection through one workflow, or queries
// the finished knowledge base.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-travel-knowledge/internal/cloud"
	"github.com/jaycherian/gcp-go-travel-knowledge/internal/telemetry"
)

// app is built by the root command before any subcommand runs.
type app struct {
	config  *cloud.Config
	clients *cloud.ServiceClients
	out     io.Writer

	closeLog          func() error
	shutdownTelemetry func(context.Context) error
}

func (a *app) setup(cmd *cobra.Command, logLevel string) error {
	for k, v := range map[string]string{cloud.EnvConfigFilePrefix: "configs", cloud.EnvConfigRuntime: "local"} {
		if _, ok := os.LookupEnv(k); !ok {
			if err := os.Setenv(k, v); err != nil {
				return err
			}
		}
	}

	var err error
	if a.closeLog, err = telemetry.SetupLogging(telemetry.LogOptions{Level: logLevel, Component: "pipeline"}); err != nil {
		return err
	}

	a.config = cloud.NewConfig()
	cloud.LoadConfig(a.config)
	cloud.ApplySecrets(a.config)

	ctx := cmd.Context()
	if a.shutdownTelemetry, err = telemetry.SetupOpenTelemetry(ctx, a.config); err != nil {
		return err
	}
	if a.clients, err = cloud.NewCloudServiceClients(ctx, a.config); err != nil {
		return fmt.Errorf("failed to create clients: %w", err)
	}
	a.out = cmd.OutOrStdout()
	return nil
}

func (a *app) teardown(ctx context.Context) {
	if a.clients != nil {
		a.clients.Close(ctx)
	}
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// printJSON writes v indented to the command output.
func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCommand(a *app) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "pipeline",
		Short:         "Build and query the travel vlog knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(
		newScrapeCommand(a),
		newRefineCommand(a),
		newExtractCommand(a),
		newEnrichCommand(a),
		newTopicsCommand(a),
		newSearchCommand(a),
		newAskCommand(a),
		newItineraryCommand(a),
	)
	return root
}

func main() {
	ctx := context.Background()
	a := &app{}
	err := newRootCommand(a).ExecuteContext(ctx)
	a.teardown(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
