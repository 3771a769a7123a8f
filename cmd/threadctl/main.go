// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// threadctl is the operator CLI for the thread intelligence service.
//
// Usage:
//
//	threadctl import messages.jsonl
//	threadctl summarize [--thread 12 --thread 13] [--label CATEGORY_PERSONAL] [--limit 20]
//	threadctl contacts review
//	threadctl contacts show <id>
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bcem/threadintel/internal/app"
	"github.com/bcem/threadintel/internal/config"
)

func newRootCmd() *cobra.Command {
	var svc *app.Services

	root := &cobra.Command{
		Use:   "threadctl",
		Short: "Import mail threads, summarise them and review contacts",
		Long: `threadctl works directly against the configured store. It reads the
same configuration as the server (.env, config.yaml and the environment).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			// stdout carries command output, logs go to stderr
			slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: cfg.LogLevel,
			})))
			svc, err = app.Open(cmd.Context(), cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if svc != nil {
				svc.Close()
			}
		},
	}

	services := func() *app.Services { return svc }
	root.AddCommand(
		newImportCmd(services),
		newSummarizeCmd(services),
		newContactsCmd(services),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
