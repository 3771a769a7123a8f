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
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bcem/threadintel/internal/app"
	"github.com/bcem/threadintel/internal/batch"
)

func newSummarizeCmd(services func() *app.Services) *cobra.Command {
	var (
		threadIDs []int64
		label     string
		limit     int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarise threads that need it",
		Long: `Summarise the given threads, or every thread whose latest email carries
the label and has not been summarised yet. Defaults come from batch.label and
batch.limit in the configuration; --limit -1 removes the limit and --label ""
selects threads regardless of label.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := services()
			req := svc.BatchRequest()
			req.ThreadIDs = threadIDs
			if cmd.Flags().Changed("label") {
				req.Label = label
			}
			if cmd.Flags().Changed("limit") {
				req.Limit = limit
			}

			res, err := svc.Runner().Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printBatch(out, res)
			if res.Failed > 0 {
				return fmt.Errorf("%d thread(s) failed", res.Failed)
			}
			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&threadIDs, "thread", nil, "thread id to summarise (repeatable)")
	cmd.Flags().StringVar(&label, "label", "", "only threads whose latest email has this label")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of threads")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printBatch(w io.Writer, res *batch.Result) {
	fmt.Fprintf(w, "  %-8s %-10s %-16s %s\n", "THREAD", "STATUS", "ACTION", "DETAIL")
	for _, tr := range res.Threads {
		detail := tr.Error
		if tr.Fallback {
			detail = "model reply stored raw"
		}
		fmt.Fprintf(w, "  %-8d %-10s %-16s %s\n", tr.ThreadID, tr.Status, tr.Action, detail)
	}
	fmt.Fprintf(w, "processed %d, skipped %d, failed %d in %s\n",
		res.Processed, res.Skipped, res.Failed, res.Elapsed.Round(time.Millisecond))
}
