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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcem/threadintel/internal/app"
)

func newContactsCmd(services func() *app.Services) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Inspect contacts",
	}
	cmd.AddCommand(newContactsReviewCmd(services), newContactsShowCmd(services))
	return cmd
}

func newContactsReviewCmd(services func() *app.Services) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "List contacts flagged for manual review",
		Long: `List contacts that hold more addresses than identity.review_email_threshold.
Such contacts often merge several people who share a display name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := services().Store
			contacts, err := st.ListContactsNeedingReview(cmd.Context())
			if err != nil {
				return fmt.Errorf("list contacts: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(contacts) == 0 {
				fmt.Fprintln(out, "No contacts need review.")
				return nil
			}
			fmt.Fprintf(out, "  %-6s %-24s %s\n", "ID", "NAME", "ADDRESSES")
			for _, c := range contacts {
				addrs, err := st.ContactEmails(cmd.Context(), c.ID)
				if err != nil {
					return fmt.Errorf("addresses of contact %d: %w", c.ID, err)
				}
				emails := make([]string, len(addrs))
				for i, a := range addrs {
					emails[i] = a.Email
				}
				fmt.Fprintf(out, "  %-6d %-24s %s\n", c.ID, c.Name, strings.Join(emails, ", "))
			}
			return nil
		},
	}
}

func newContactsShowCmd(services func() *app.Services) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a contact with its knowledge and address strings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid contact id %q", args[0])
			}
			st := services().Store
			c, err := st.GetContact(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("contact %d: %w", id, err)
			}
			strs, err := st.ListEmailStringsForContact(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("email strings of contact %d: %w", id, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:           %d\n", c.ID)
			fmt.Fprintf(out, "Name:         %s\n", c.Name)
			fmt.Fprintf(out, "Needs review: %t\n", c.NeedsReview)
			knowledge := c.Knowledge
			if knowledge == "" {
				knowledge = "(none)"
			}
			fmt.Fprintf(out, "Knowledge:    %s\n", knowledge)
			fmt.Fprintln(out, "Appears as:")
			for _, es := range strs {
				fmt.Fprintf(out, "  %s\n", es.OriginalString)
			}
			return nil
		},
	}
}
