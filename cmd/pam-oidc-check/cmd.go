// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pam-oidc/pam-oidc/auth"
	"github.com/pam-oidc/pam-oidc/config"
	"github.com/pam-oidc/pam-oidc/oidc"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ErrNotAuthenticated is returned by login when the result isn't success.
var ErrNotAuthenticated = errors.New("not authenticated")

type rootOptions struct {
	configPath string
	user       string
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "pam-oidc-check",
		Short:         "Check a pam_oidc configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", config.DefaultPath, "path to the configuration file")
	cmd.AddCommand(newValidateCmd(o), newLoginCmd(o))
	return cmd
}

func newValidateCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and discover the provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.validate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func newLoginCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate a user the way the PAM module does",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.login(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&o.user, "user", "u", os.Getenv("USER"), "user to authenticate")
	return cmd
}

func (o *rootOptions) validate(ctx context.Context, out, errOut io.Writer) error {
	const op = "validate"
	c, err := config.Load(config.WithPath(o.configPath))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, w := range c.Warnings {
		fmt.Fprintln(errOut, "Warning:", w)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "pam-oidc-check",
		Level:  hclog.LevelFromString(c.LogLevel),
		Output: errOut,
	})
	oc, err := oidc.NewConfig(
		c.IssuerURL,
		c.ClientID,
		oidc.ClientSecret(c.ClientSecret),
		oidc.WithScopes(c.Scopes...),
		oidc.WithProviderCA(c.ProviderCA),
		oidc.WithDiscoveryTimeout(c.DiscoveryTimeout),
		oidc.WithTokenTimeout(c.TokenTimeout),
		oidc.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p, err := oidc.NewProvider(ctx, oc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	fmt.Fprintf(out, "configuration %s is valid\n", o.configPath)
	fmt.Fprintf(out, "issuer:         %s\n", oc.Issuer)
	fmt.Fprintf(out, "client_id:      %s\n", oc.ClientID)
	fmt.Fprintf(out, "scopes:         %s\n", strings.Join(oc.Scopes, " "))
	fmt.Fprintf(out, "token_endpoint: %s\n", p.TokenEndpoint())
	return nil
}

func (o *rootOptions) login(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	const op = "login"
	if o.user == "" {
		return fmt.Errorf("%s: --user is required", op)
	}
	password, err := readPassword(in, errOut)
	if err != nil {
		return fmt.Errorf("%s: unable to read password: %w", op, err)
	}

	a := auth.NewAuthenticator(auth.WithConfigPath(o.configPath), auth.WithLogOutput(errOut))
	r := a.Authenticate(ctx, credentials{user: o.user, password: password})
	fmt.Fprintln(out, r)
	if r != auth.Success {
		return fmt.Errorf("%s: %w: %s", op, ErrNotAuthenticated, r)
	}
	return nil
}

// readPassword reads without echo when in is a terminal and reads one line
// otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type credentials struct {
	user     string
	password string
}

func (c credentials) User() (string, error)      { return c.user, nil }
func (c credentials) AuthToken() (string, error) { return c.password, nil }
