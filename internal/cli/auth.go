package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/todo-copilot/internal/auth"
	"github.com/idilsaglam/todo-copilot/internal/config"
	"github.com/idilsaglam/todo-copilot/internal/ui"
)

func newAuthCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the token used to reach the assistant endpoint",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthWhoamiCmd())
	cmd.AddCommand(newAuthIssueCmd(opts))
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Save a token (argument or first line of stdin)",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				sc := bufio.NewScanner(cmd.InOrStdin())
				if sc.Scan() {
					token = sc.Text()
				}
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return usageErrorf("no token given")
			}

			claims, err := auth.Inspect(strings.TrimPrefix(token, "Bearer "))
			if err != nil {
				return err
			}
			var exp *time.Time
			if claims.ExpiresAt != nil {
				t := claims.ExpiresAt.Time
				exp = &t
			}
			if err := auth.SetToken(token, exp); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "logged in as "+claims.Subject)
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved token",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ti, _ := auth.GetToken(); ti != nil && ti.Source == "env" {
				ui.OK(cmd.OutOrStdout(), "token is provided by "+auth.TokenEnv+" (nothing to delete)")
				return nil
			}
			if err := auth.DeleteToken(); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the token comes from and when it expires",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ti, err := auth.GetToken()
			if err != nil {
				if errors.Is(err, auth.ErrNoToken) {
					return errors.New("not logged in")
				}
				return err
			}
			th := ui.Current()
			lines := []string{ui.C(th.Title, "Agent token")}

			source := "env " + auth.TokenEnv
			if ti.Source == "file" {
				p, _ := auth.CredFilePath()
				source = p
			}
			lines = append(lines, ui.C(th.Muted, "source:  ")+source)

			if claims, err := auth.Inspect(ti.Token); err == nil {
				lines = append(lines, ui.C(th.Muted, "subject: ")+claims.Subject)
				if claims.ExpiresAt != nil {
					exp := claims.ExpiresAt.Time
					state := ui.C(th.Success, "valid")
					if time.Now().After(exp) {
						state = ui.C(th.Error, "expired")
					}
					lines = append(lines, ui.C(th.Muted, "expires: ")+exp.Format(time.RFC3339)+" "+state)
				} else {
					lines = append(lines, ui.C(th.Muted, "expires: ")+"never")
				}
			}
			ui.Panel(cmd.OutOrStdout(), lines)
			return nil
		},
	}
}

func newAuthWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the subject of the saved token",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ti, err := auth.GetToken()
			if err != nil {
				return err
			}
			claims, err := auth.Inspect(ti.Token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), claims.Subject)
			return nil
		},
	}
}

func newAuthIssueCmd(opts *Options) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		save    bool
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a token signed with the configured agent secret",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer := auth.NewSigner(opts.cfg.Agent.Secret)
			if signer == nil {
				return usageErrorf("no agent secret configured (set %s or agent.secret)", config.EnvAgentSecret)
			}
			token, exp, err := signer.Issue(subject, ttl)
			if err != nil {
				return err
			}
			if save {
				if err := auth.SetToken(token, exp); err != nil {
					return err
				}
				ui.OK(cmd.ErrOrStderr(), "token saved")
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "assistant", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "lifetime; 0 means no expiry")
	cmd.Flags().BoolVar(&save, "save", false, "also save the token like auth login does")
	return cmd
}
