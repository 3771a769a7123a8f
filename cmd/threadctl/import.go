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

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bcem/threadintel/internal/app"
)

func newImportCmd(services func() *app.Services) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import exported messages (JSON array or JSON lines)",
		Long: `Import already-fetched messages into the store. Each record has the
fields id, thread_id, date, from, to, cc, subject, body, snippet and labels.
Use "-" to read from standard input. Re-importing a message is a no-op.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				r = f
			}

			res, err := services().Importer().ImportReader(cmd.Context(), r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "threads: %d (%d new)\nemails created: %d\nemails skipped: %d\n",
				res.Threads, res.NewThreads, res.Created, res.Skipped)
			return nil
		},
	}
}
