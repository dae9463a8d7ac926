package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zoheir79/whispey-sub004/internal/auth"
	"github.com/zoheir79/whispey-sub004/internal/config"

	"github.com/spf13/cobra"
)

type tokenIssueOptions struct {
	UserID    string
	Email     string
	AgentInfo string
	TTL       time.Duration
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign and inspect session tokens",
	}
	cmd.AddCommand(tokenIssueCmd(), tokenVerifyCmd())
	return cmd
}

// tokenIssueCmd mints a token with the configured JWT_* settings, the way the
// agent platform does for single sign-on.
func tokenIssueCmd() *cobra.Command {
	var opts tokenIssueOptions
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAuth()
			if err != nil {
				return err
			}
			codec, err := auth.NewCodec(cfg)
			if err != nil {
				return err
			}
			id := auth.Identity{UserID: opts.UserID, Email: opts.Email}
			if opts.AgentInfo != "" {
				if err := json.Unmarshal([]byte(opts.AgentInfo), &id.AgentInfo); err != nil {
					return fmt.Errorf("--agent-info must be a JSON object: %w", err)
				}
			}
			tok, _, err := codec.Issue(time.Now(), id, opts.TTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.UserID, "user-id", "", "user id claim (required)")
	fs.StringVar(&opts.Email, "email", "", "user email claim")
	fs.StringVar(&opts.AgentInfo, "agent-info", "", `agent context as a JSON object, e.g. {"agent_id":"a1"}`)
	fs.DurationVar(&opts.TTL, "ttl", 0, "lifetime; defaults to JWT_TTL")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func tokenVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its identity claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAuth()
			if err != nil {
				return err
			}
			codec, err := auth.NewCodec(cfg)
			if err != nil {
				return err
			}
			claims, err := codec.Verify(args[0], time.Now())
			if err != nil {
				return errors.New(auth.UserMessage(err))
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"user_id":    claims.UserID,
				"user_email": claims.Email,
				"agent_info": claims.AgentInfo,
				"expires_at": claims.ExpiresAt.Time.UTC(),
			})
		},
	}
}
