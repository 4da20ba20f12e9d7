package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/spareledger/internal/adapter/http/dto"
	"github.com/iho/spareledger/internal/infrastructure/config"
	"github.com/iho/spareledger/internal/infrastructure/logger"
	"github.com/iho/spareledger/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "spareledger-cli",
		Short:         "SpareLedger CLI tool",
		Long:          `A command line interface for triggering syncs, categorization and reports on the SpareLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the SpareLedger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Request timeout")

	rootCmd.AddCommand(syncCmd(), categorizeCmd(), netWorthCmd(), subscriptionsCmd(), migrateCmd())
	return rootCmd
}

func syncCmd() *cobra.Command {
	var credentialIDs []string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull new transactions from the provider and apply round-ups",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report dto.SyncResponse
			status, err := call(http.MethodPost, "/api/v1/sync", dto.SyncRequest{CredentialIDs: credentialIDs}, &report)
			if err != nil {
				return err
			}
			printSyncReport(cmd.OutOrStdout(), &report)
			if status == http.StatusBadGateway {
				return fmt.Errorf("sync failed for every credential")
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&credentialIDs, "credential", nil, "Credential ID to sync (repeatable, default all)")
	return cmd
}

func categorizeCmd() *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Classify transactions that have no category yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report dto.CategorizationResponse
			if _, err := call(http.MethodPost, "/api/v1/categorize", dto.CategorizeRequest{BatchSize: batchSize}, &report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Categorized %d of %d pending transactions in %d batches (%d failed)\n",
				report.Processed, report.Pending, report.Batches, report.Errors)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Transactions per classification request (default from server config)")
	return cmd
}

func netWorthCmd() *cobra.Command {
	var accountID, institutionID string
	cmd := &cobra.Command{
		Use:   "net-worth",
		Short: "Show net worth across accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var nw dto.NetWorthResponse
			if _, err := call(http.MethodGet, "/api/v1/net-worth"+filterQuery(accountID, institutionID), nil, &nw); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tSOURCE\tAMOUNT")
			for _, c := range nw.Contributions {
				fmt.Fprintf(w, "%s\t%s\t%s\n", truncate(c.AccountID, 28), c.Source, c.Amount)
			}
			fmt.Fprintf(w, "TOTAL\t\t%s\n", nw.Total)
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "Restrict to one account")
	cmd.Flags().StringVar(&institutionID, "institution", "", "Restrict to one institution")
	return cmd
}

func subscriptionsCmd() *cobra.Command {
	var accountID, institutionID string
	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "List detected subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var summary dto.SubscriptionSummaryResponse
			if _, err := call(http.MethodGet, "/api/v1/subscriptions"+filterQuery(accountID, institutionID), nil, &summary); err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "Restrict to one account")
	cmd.Flags().StringVar(&institutionID, "institution", "", "Restrict to one institution")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations (uses DATABASE_URL and MIGRATIONS_PATH)",
	}

	newMigrator := func() (*postgres.Migrator, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console"})
		return postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log), nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := newMigrator()
				if err != nil {
					return err
				}
				return m.Up()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := newMigrator()
				if err != nil {
					return err
				}
				return m.Down()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := newMigrator()
				if err != nil {
					return err
				}
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %v)\n", version, dirty)
				return nil
			},
		},
	)
	return cmd
}

// call sends a JSON request and decodes the response into out. Responses with
// status 200 and 207 are decoded; 502 is decoded too so callers can report
// per-item failures. Anything else is returned as an error.
func call(method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusMultiStatus:
	case http.StatusBadGateway:
		if path != "/api/v1/sync" {
			return resp.StatusCode, apiError(resp, raw)
		}
	default:
		return resp.StatusCode, apiError(resp, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func apiError(resp *http.Response, raw []byte) error {
	var e dto.ErrorResponse
	if err := json.Unmarshal(raw, &e); err != nil || e.Error == "" {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(raw), 200))
	}
	msg := fmt.Sprintf("%s (status %d)", e.Error, resp.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if retry := resp.Header.Get("Retry-After"); retry != "" {
		msg += fmt.Sprintf("; retry after %ss", retry)
	}
	return errors.New(msg)
}

func printSyncReport(w io.Writer, report *dto.SyncResponse) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREDENTIAL\tSTATUS\tADDED\tUPDATED\tPAGES\tERROR")
	for _, c := range report.Credentials {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			truncate(c.CredentialID, 28), c.Status, c.Added, c.Updated, c.Pages, truncate(c.Error, 60))
	}
	tw.Flush()

	fmt.Fprintf(w, "Outcome: %s (%d added, %d updated)\n", report.Outcome, report.AddedCount, report.UpdatedCount)
	if r := report.RoundUp; r != nil && r.Goals > 0 {
		fmt.Fprintf(w, "Round-ups: %s to %d goals (%s each, %s left over)\n", r.Distributed, r.Goals, r.Share, r.Leftover)
	}
}

func filterQuery(accountID, institutionID string) string {
	q := url.Values{}
	if accountID != "" {
		q.Set("account", accountID)
	}
	if institutionID != "" {
		q.Set("institution", institutionID)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
