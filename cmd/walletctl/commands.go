package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"wallet-pos-bridge/config"
	"wallet-pos-bridge/internal/adapter/posclient"
	"wallet-pos-bridge/internal/bootstrap"
	"wallet-pos-bridge/internal/core/ports"
	"wallet-pos-bridge/internal/service"
	"wallet-pos-bridge/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
)

// builder assembles the services; tests substitute a fake.
type builder func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*bootstrap.Components, error)

type cli struct {
	build      builder
	configPath string
	logLevel   string
	cfg        *config.Config
	log        zerolog.Logger
}

func newRootCommand(build builder) *cobra.Command {
	c := &cli{build: build}
	root := &cobra.Command{
		Use:           "walletctl",
		Short:         "Operate the wallet POS bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, flagConfig, "", "config file (defaults to ./config.yaml; WPB_* env vars override)")
	root.PersistentFlags().StringVar(&c.logLevel, flagLogLevel, "", "override log.level")

	root.AddCommand(
		c.migrateCommand(),
		c.credentialsCommand(),
		c.signCommand(),
		c.pingCommand(),
		c.customerCommand(),
		c.syncCommand(),
		c.tokenCommand(),
	)
	return root
}

func (c *cli) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	c.cfg = cfg
	c.log = logger.NewWithWriter(level, cmd.ErrOrStderr())
	return nil
}

// open validates the configuration and builds the services.
func (c *cli) open(ctx context.Context) (*bootstrap.Components, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c.build(ctx, c.cfg, c.log)
}

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pool, rdb, err := bootstrap.Connect(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer pool.Close()
			defer rdb.Close()

			applied, err := bootstrap.Migrate(ctx, pool, c.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
}

func (c *cli) credentialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the POS API key and signing secret",
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new pair; the previous one stops working immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			creds, err := app.Credentials.Generate(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api_key:        %s\n", creds.APIKey)
			fmt.Fprintf(out, "signing_secret: %s\n", creds.SigningSecret)
			fmt.Fprintf(out, "generated_at:   %s\n", creds.GeneratedAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke the active pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Credentials.Revoke(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "credentials revoked")
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the active API key (masked) and when it was generated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			creds, err := app.Credentials.Current(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if creds == nil || !creds.Active() {
				fmt.Fprintln(out, "no active credentials")
				return nil
			}
			fmt.Fprintf(out, "api_key:      %s\n", mask(creds.APIKey))
			if !creds.GeneratedAt.IsZero() {
				fmt.Fprintf(out, "generated_at: %s\n", creds.GeneratedAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.AddCommand(generate, revoke, show)
	return cmd
}

func (c *cli) signCommand() *cobra.Command {
	var (
		secret    string
		file      string
		legacy    bool
		apiKey    string
		timestamp string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute request signatures",
		Long: `Without --legacy, prints hex(HMAC-SHA256(body, secret)) for a webhook body
read from --file or stdin, as sent in X-Wallet-Signature. The active signing
secret is used when --secret is omitted.

With --legacy, prints the X-Api-Key / X-Timestamp / X-Signature headers of the
legacy POS authentication scheme.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if legacy {
				if apiKey == "" {
					apiKey = c.cfg.POS.APIKey
				}
				if secret == "" {
					secret = c.cfg.POS.LegacySecret
				}
				if apiKey == "" || secret == "" {
					return errors.New("--api-key and --secret (or pos.api_key and pos.legacy_secret) are required")
				}
				if timestamp == "" {
					timestamp = strconv.FormatInt(time.Now().Unix(), 10)
				}
				fmt.Fprintf(out, "X-Api-Key: %s\n", apiKey)
				fmt.Fprintf(out, "X-Timestamp: %s\n", timestamp)
				fmt.Fprintf(out, "X-Signature: %s\n", posclient.LegacySignature(apiKey, timestamp, secret))
				return nil
			}

			body, err := readPayload(cmd, file)
			if err != nil {
				return err
			}

			if secret == "" {
				secret, err = c.activeSecret(cmd.Context())
				if err != nil {
					return err
				}
			}
			fmt.Fprintln(out, service.NewHMACSignatureService().Sign(secret, body))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (default: the active one)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "payload file (default: stdin)")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "print legacy HMAC headers instead")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for --legacy (default: pos.api_key)")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "unix timestamp for --legacy (default: now)")
	return cmd
}

func (c *cli) activeSecret(ctx context.Context) (string, error) {
	app, err := c.open(ctx)
	if err != nil {
		return "", err
	}
	defer app.Close()

	creds, err := app.Credentials.Current(ctx)
	if err != nil {
		return "", err
	}
	if creds == nil || !creds.Active() {
		return "", errors.New("no active credentials; run `walletctl credentials generate` or pass --secret")
	}
	return creds.SigningSecret, nil
}

func (c *cli) pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the POS connection with the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			status, err := app.POS.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "configured: %t\n", status.POSConfigured)
			fmt.Fprintf(out, "ssot:       %t\n", status.SSoT)
			if status.Connection == "" {
				fmt.Fprintln(out, "connection: not attempted")
				return nil
			}
			fmt.Fprintf(out, "connection: %s\n", status.Connection)
			if status.ConnectionErr != "" {
				return fmt.Errorf("POS unreachable: %s", status.ConnectionErr)
			}
			return nil
		},
	}
}

func (c *cli) customerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "customer <email>",
		Short: "Show the POS profile and balance of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			cust, err := app.Wallet.RemoteCustomer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "email:   %s\n", cust.Email)
			if name := strings.TrimSpace(cust.FirstName + " " + cust.LastName); name != "" {
				fmt.Fprintf(out, "name:    %s\n", name)
			}
			if cust.Phone != "" {
				fmt.Fprintf(out, "phone:   %s\n", cust.Phone)
			}
			fmt.Fprintf(out, "balance: %s\n", cust.Balance.StringFixed(2))
			return nil
		},
	}
}

func (c *cli) syncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect and drive the outbound sync outbox",
	}

	var maxRounds int
	drain := &cobra.Command{
		Use:   "drain",
		Short: "Process due sync jobs until none are left",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			n, err := drainOutbox(cmd.Context(), app.SyncWorker, maxRounds)
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d job(s)\n", n)
			return err
		},
	}
	drain.Flags().IntVar(&maxRounds, "max-rounds", 50, "stop after this many batches")

	cmd.AddCommand(drain)
	return cmd
}

// drainOutbox calls ProcessDue until a batch comes back empty.
func drainOutbox(ctx context.Context, worker ports.SyncWorker, maxRounds int) (int, error) {
	total := 0
	for i := 0; i < maxRounds; i++ {
		n, err := worker.ProcessDue(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

func (c *cli) tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer tokens for the storefront and admin endpoints",
	}

	var subject, role string
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			token, expiry, err := app.Auth.IssueToken(subject, role)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(out, "expires: %s\n", expiry.UTC().Format(time.RFC3339))
			return nil
		},
	}
	issue.Flags().StringVar(&subject, "subject", "operator", "token subject")
	issue.Flags().StringVar(&role, "role", ports.RoleAdmin, "admin or storefront")

	cmd.AddCommand(issue)
	return cmd
}

func readPayload(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(file)
}

func mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
