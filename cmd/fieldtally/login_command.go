package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fieldtally/internal/fieldapi"
	"fieldtally/internal/outbox"
	"fieldtally/internal/session"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the remote server and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			email = strings.TrimSpace(email)
			if email == "" {
				fmt.Fprint(stdout, "Email: ")
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read email: %w", err)
				}
				email = strings.TrimSpace(line)
			}
			if email == "" {
				return fmt.Errorf("email is required")
			}

			if password == "" {
				fmt.Fprint(stdout, "Password: ")
				secret, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(stdout)
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = string(secret)
			}
			if password == "" {
				return fmt.Errorf("password is required")
			}

			return ctx.withAPI(func(api *fieldapi.Client, _ *outbox.Store) error {
				if err := api.Login(cmd.Context(), email, password); err != nil {
					return fmt.Errorf("login: %w", err)
				}
				fmt.Fprintf(stdout, "Logged in as %s\n", email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := session.NewStore(cfg.SessionPath()).Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
