package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wedding-invite/backend/config"
	"github.com/wedding-invite/backend/internal/guestlink"
	"github.com/wedding-invite/backend/internal/models"
	"github.com/wedding-invite/backend/internal/personstore"
)

func newRootCmd(cfg *config.Config, logger *zap.Logger) *cobra.Command {
	var storeURL string
	root := &cobra.Command{
		Use:          "invitectl",
		Short:        "Build and inspect wedding invitation links",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&storeURL, "store", cfg.PersonStore.BaseURL, "person store base URL")

	client := func() *personstore.Client {
		return personstore.NewClient(personstore.Config{
			BaseURL:  storeURL,
			Resource: cfg.PersonStore.Resource,
			Timeout:  time.Duration(cfg.PersonStore.TimeoutSec) * time.Second,
		}, logger)
	}

	root.AddCommand(newLinkCmd(cfg, client), newDecodeCmd(), newGuestsCmd(client))
	return root
}

func newLinkCmd(cfg *config.Config, client func() *personstore.Client) *cobra.Command {
	var base string
	var ids []string
	cmd := &cobra.Command{
		Use:   "link --id ID [--id ID...]",
		Short: "Print the invitation link for the given guest ids",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(ids) == 0 {
				return fmt.Errorf("at least one --id is required")
			}
			roster, err := client().List(cmd.Context())
			if err != nil {
				return err
			}
			byID := make(map[string]models.Guest, len(roster))
			for _, g := range roster {
				byID[g.ID] = g
			}
			chosen := make([]models.Descriptor, 0, len(ids))
			for _, id := range ids {
				g, ok := byID[id]
				if !ok {
					return fmt.Errorf("guest %q not found", id)
				}
				chosen = append(chosen, g.Descriptor())
			}
			fmt.Fprintln(cmd.OutOrStdout(), guestlink.Link(base, chosen))
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", cfg.Wedding.InviteBaseURL, "registration page URL")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "guest id (repeatable or comma-separated)")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "decode LINK",
		Short: "Print the guests an invitation link or query string carries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			if u, err := url.Parse(query); err == nil && u.Scheme != "" {
				query = u.RawQuery
			} else if i := strings.IndexByte(query, '?'); i >= 0 {
				query = query[i+1:]
			}
			guests, err := guestlink.DecodeErr(query)
			if err != nil && strict {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(guests)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of printing an empty list for a malformed link")
	return cmd
}

func newGuestsCmd(client func() *personstore.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "guests",
		Short: "List the roster held by the person store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			roster, err := client().List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, g := range roster {
				fmt.Fprintf(out, "%s\t%s\twedding=%t\tceremony=%t\n", g.ID, g.Name, g.AssistWedding, g.AssistCeremony)
			}
			return nil
		},
	}
}
