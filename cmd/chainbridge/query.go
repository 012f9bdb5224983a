package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/blockberries/chainbridge/bridge"
	"github.com/blockberries/chainbridge/transport"
	"github.com/blockberries/chainbridge/types"
)

var (
	txFrom  string
	txLimit uint8
	txPages int
)

var accountCmd = &cobra.Command{
	Use:   "account <address>",
	Short: "Print the full state of an account",
	Long: `Query the full state of an account through the bridge.

Accounts that are not on chain print as null.

Example:
  chainbridge account 0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8`,
	Args: cobra.ExactArgs(1),
	RunE: runAccount,
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions <address>",
	Short: "Print the transaction history of an account",
	Long: `Query pages of an account's transaction history, newest first.

Each page is printed as returned by the bridge. Use the continuation of a
page as --from to resume.

Example:
  chainbridge transactions 0:83df...31a8 --limit 16 --pages 3
  chainbridge transactions 0:83df...31a8 --from '{"lt":"5000","hash":"..."}'`,
	Args: cobra.ExactArgs(1),
	RunE: runTransactions,
}

func init() {
	transactionsCmd.Flags().StringVar(&txFrom, "from", "", "continuation cursor to start from")
	transactionsCmd.Flags().Uint8Var(&txLimit, "limit", 16, "transactions per page")
	transactionsCmd.Flags().IntVar(&txPages, "pages", 1, "number of pages to follow")
}

// nextPort hands out result ports for the calls of this process.
var nextPort atomic.Int64

// session is a bridge with one transport handle created from the config.
type session struct {
	bridge *bridge.Bridge
	handle bridge.HandleID
	close  func() error
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := createLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	tracer, shutdownTracing, err := setupTracing(cfg.Tracing)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	m := createMetrics(cfg.Metrics)

	t, err := openTransport(cfg.Transport)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("opening transport: %w", err)
	}

	b, err := bridge.New(
		bridge.WithLogger(logger),
		bridge.WithMetrics(m),
		bridge.WithTracer(tracer),
		bridge.WithWorkers(cfg.Bridge.Workers),
		bridge.WithCallTimeout(cfg.Bridge.CallTimeout.Duration()),
		bridge.WithTxCacheSize(cfg.Bridge.TxCacheSize),
	)
	if err != nil {
		transport.Close(t)
		closeLog()
		return nil, fmt.Errorf("creating bridge: %w", err)
	}

	h, err := b.CreateTransport(transport.Instrument(t, m, tracer, logger))
	if err != nil {
		transport.Close(t)
		closeLog()
		return nil, fmt.Errorf("creating transport handle: %w", err)
	}

	return &session{
		bridge: b,
		handle: h,
		close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err := b.Close(ctx)
			if terr := shutdownTracing(ctx); err == nil {
				err = terr
			}
			closeLog()
			return err
		},
	}, nil
}

// await runs call on a fresh port and waits for its outcome.
func (s *session) await(ctx context.Context, call func(port int64)) (string, error) {
	port := nextPort.Add(1)
	outcome, err := s.bridge.Ports().Wait(ctx, port, func() { call(port) })
	if err != nil {
		return "", err
	}
	if err := outcome.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", outcome.Status, err)
	}
	return outcome.Payload, nil
}

func runAccount(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	payload, err := s.await(cmd.Context(), func(port int64) {
		s.bridge.GetFullAccountState(port, s.handle, args[0])
	})
	if err != nil {
		return err
	}
	return printPayload(cmd, payload)
}

func runTransactions(cmd *cobra.Command, args []string) (err error) {
	if txPages < 1 {
		return fmt.Errorf("pages must be positive")
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	var continuation *string
	if txFrom != "" {
		continuation = &txFrom
	}

	for range txPages {
		payload, err := s.await(cmd.Context(), func(port int64) {
			s.bridge.GetTransactions(port, s.handle, args[0], continuation, txLimit)
		})
		if err != nil {
			return err
		}
		if err := printPayload(cmd, payload); err != nil {
			return err
		}

		var page types.TransactionsList
		if err := json.Unmarshal([]byte(payload), &page); err != nil {
			return fmt.Errorf("decoding page: %w", err)
		}
		if page.Continuation == nil {
			break
		}
		cursor, err := json.Marshal(page.Continuation)
		if err != nil {
			return fmt.Errorf("encoding continuation: %w", err)
		}
		next := string(cursor)
		continuation = &next
	}
	return nil
}

func printPayload(cmd *cobra.Command, payload string) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(payload), "", "  "); err != nil {
		return fmt.Errorf("formatting payload: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(cmd.OutOrStdout())
	return err
}
