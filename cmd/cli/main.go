package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type client struct {
	baseURL string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &client{}

	rootCmd := &cobra.Command{
		Use:          "memledger-cli",
		Short:        "MemLedger CLI tool",
		Long:         `A command line interface for interacting with the MemLedger API.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&c.baseURL, "url", "http://localhost:8080", "Base URL of the MemLedger API")
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(accountsCmd(c), transferCmd(c), ledgerCmd(c))
	return rootCmd
}

func accountsCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}

	var (
		id      string
		balance string
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"account_id": id}
			if balance != "" {
				if _, err := decimal.NewFromString(balance); err != nil {
					return fmt.Errorf("invalid balance %q: %w", balance, err)
				}
				body["balance"] = balance
			}
			return c.do(cmd.OutOrStdout(), http.MethodPost, "/api/v1/accounts/", body)
		},
	}
	createCmd.Flags().StringVar(&id, "id", "", "Account ID (generated when empty)")
	createCmd.Flags().StringVar(&balance, "balance", "", "Opening balance")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(cmd.OutOrStdout(), http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), nil)
		},
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))
			return c.do(cmd.OutOrStdout(), http.MethodGet, "/api/v1/accounts/?"+q.Encode(), nil)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum accounts to list")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Accounts to skip")

	cmd.AddCommand(createCmd, getCmd, listCmd)
	return cmd
}

func transferCmd(c *client) *cobra.Command {
	var from, to, amount, key string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move funds between two accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := decimal.NewFromString(amount); err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			body := map[string]string{
				"sender_account_id":    from,
				"recipient_account_id": to,
				"amount":               amount,
			}
			return c.doWithKey(cmd.OutOrStdout(), http.MethodPost, "/api/v1/transfers/", body, key)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Sender account ID")
	cmd.Flags().StringVar(&to, "to", "", "Recipient account ID")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to transfer")
	cmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key for safe retries")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func ledgerCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.checkConsistency(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(consistencyCmd)
	return cmd
}

func (c *client) checkConsistency(out io.Writer) error {
	status, body, err := c.request(http.MethodGet, "/api/v1/ledger/consistency", nil, "")
	if err != nil {
		return err
	}

	var result struct {
		Consistent bool   `json:"consistent"`
		Accounts   int    `json:"accounts"`
		Total      string `json:"total"`
		Expected   string `json:"expected"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", status, err)
	}

	if status != http.StatusOK || !result.Consistent {
		fmt.Fprintf(out, "Consistency check FAILED (Status: %d)\nResponse: %s\n", status, string(body))
		return fmt.Errorf("ledger is inconsistent")
	}

	fmt.Fprintf(out, "Consistency check PASSED\n")
	fmt.Fprintf(out, "Accounts: %d\nTotal: %s\nExpected: %s\n", result.Accounts, result.Total, result.Expected)
	return nil
}

func (c *client) do(out io.Writer, method, path string, payload any) error {
	return c.doWithKey(out, method, path, payload, "")
}

func (c *client) doWithKey(out io.Writer, method, path string, payload any, key string) error {
	status, body, err := c.request(method, path, payload, key)
	if err != nil {
		return err
	}

	printJSON(out, body)
	if status >= http.StatusBadRequest {
		return fmt.Errorf("request failed with status %d", status)
	}
	return nil
}

func (c *client) request(method, path string, payload any, key string) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := (&http.Client{Timeout: c.timeout}).Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("error reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// printJSON pretty-prints a JSON body, or writes it verbatim if it is not JSON.
func printJSON(out io.Writer, body []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err != nil {
		fmt.Fprintln(out, string(body))
		return
	}
	fmt.Fprintln(out, buf.String())
}
