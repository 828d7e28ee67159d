package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/icrc151/ledgerd/internal/config"
	"github.com/icrc151/ledgerd/internal/ledger"
	"github.com/icrc151/ledgerd/internal/ledger/amount"
	"github.com/icrc151/ledgerd/internal/ledger/archive"
	"github.com/icrc151/ledgerd/internal/ledger/pipeline"
	"github.com/icrc151/ledgerd/internal/ledger/query"
	"github.com/icrc151/ledgerd/internal/ledger/store"
	"github.com/icrc151/ledgerd/internal/rpc"
	"github.com/icrc151/ledgerd/internal/rpc/stream"
)

// serverCmd represents the server command (default action).
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the ledgerd daemon",
	Long: `Start the ledgerd server, which provides:
- HTTP JSON-RPC 2.0 API for every ledger write and read operation
- A WebSocket endpoint for transaction-stream subscriptions
- A health check endpoint

This is the default command when no subcommand is specified.`,
	Run: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.Run = runServer
}

// runServer loads configuration, opens storage, runs the genesis bootstrap
// against an empty store, and starts the JSON-RPC listener. Grounded on
// the teacher's internal/cli/server.go runServer, replacing its nodestore
// and PostgreSQL wiring with the ledger store/pipeline/query wiring.
func runServer(cmd *cobra.Command, args []string) {
	cfg := loadedConfig
	if cfg == nil {
		log.Fatal("config was not loaded (initConfig did not run)")
	}

	if !quiet {
		fmt.Println("Starting ledgerd")
		fmt.Println("=================")
		fmt.Printf("Storage: %s backend at %q\n", cfg.Storage.Backend, cfg.Storage.Path)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer st.Close()

	if err := runGenesis(ctx, st, cfg); err != nil {
		log.Fatalf("genesis bootstrap failed: %v", err)
	}

	now := func() uint64 { return uint64(time.Now().UnixNano()) }
	ledgerSvc := pipeline.New(st, now)
	querySvc, err := query.New(st, time.Now())
	if err != nil {
		log.Fatalf("failed to start query service: %v", err)
	}

	var arc *archive.Store
	if cfg.Archive.Enabled() {
		arc, err = archive.Open(ctx, cfg.Archive.Driver, cfg.Archive.DSN)
		if err != nil {
			log.Fatalf("failed to open archive index: %v", err)
		}
		defer arc.Close()
	}

	hub := stream.NewHub()
	server := rpc.NewServer(ledgerSvc, querySvc, cfg.Server.Admin, hub, arc)

	mux := http.NewServeMux()
	mux.Handle("/", server)
	mux.Handle("/rpc", server)
	mux.Handle("/stream", hub)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"ledgerd"}`))
	})

	addr := cfg.Server.GetBindAddress()
	if !quiet {
		fmt.Printf("JSON-RPC listening on http://%s/\n", addr)
		fmt.Printf("Health check at    http://%s/health\n", addr)
	}

	if cfg.Server.IsSecure() {
		if err := http.ListenAndServeTLS(addr, cfg.Server.SSLCert, cfg.Server.SSLKey, mux); err != nil {
			log.Fatalf("server failed: %v", err)
		}
		return
	}
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// runGenesis seeds the ledger's principal, controller set and any
// initial tokens from cfg.Genesis the first time the store is opened. It
// is a no-op once the ledger principal has already been set, so it is
// safe to call on every startup.
func runGenesis(ctx context.Context, st *store.Store, cfg *config.Config) error {
	if _, ok, err := st.LedgerPrincipal(ctx); err != nil {
		return fmt.Errorf("read ledger principal: %w", err)
	} else if ok {
		return nil // genesis already ran against this store
	}

	if cfg.Ledger.Principal == "" {
		return fmt.Errorf("ledger.principal must be set for a fresh store")
	}
	if err := st.SetLedgerPrincipal(ctx, []byte(cfg.Ledger.Principal)); err != nil {
		return fmt.Errorf("set ledger principal: %w", err)
	}

	for i, c := range cfg.Genesis.Controllers {
		principal, err := hex.DecodeString(c)
		if err != nil {
			return fmt.Errorf("genesis.controllers[%d] is not valid hex: %w", i, err)
		}
		if err := st.Auth.Add(ctx, principal); err != nil {
			return fmt.Errorf("add genesis controller %d: %w", i, err)
		}
	}
	if len(cfg.Genesis.Controllers) == 0 {
		return fmt.Errorf("genesis.controllers must name at least one controller")
	}
	bootstrapCaller, err := hex.DecodeString(cfg.Genesis.Controllers[0])
	if err != nil {
		return fmt.Errorf("genesis.controllers[0] is not valid hex: %w", err)
	}

	l := pipeline.New(st, func() uint64 { return uint64(time.Now().UnixNano()) })
	for i, t := range cfg.Genesis.Tokens {
		var feePtr *amount.Amount
		if t.Fee != "" {
			f, ok := amount.FromDecimalString(t.Fee)
			if !ok {
				return fmt.Errorf("genesis.tokens[%d].fee is not a valid amount", i)
			}
			feePtr = &f
		}
		id, err := l.CreateToken(ctx, ledger.Principal(bootstrapCaller), pipeline.CreateTokenArgs{
			Name:     t.Name,
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
			Fee:      feePtr,
		})
		if err != nil {
			return fmt.Errorf("create genesis token %d (%s): %w", i, t.Symbol, err)
		}
		if t.InitialSupply == "" || t.InitialSupply == "0" {
			continue
		}
		supply, ok := amount.FromDecimalString(t.InitialSupply)
		if !ok {
			return fmt.Errorf("genesis.tokens[%d].initial_supply is not a valid amount", i)
		}
		holder, err := hex.DecodeString(t.InitialHolder)
		if err != nil {
			return fmt.Errorf("genesis.tokens[%d].initial_holder is not valid hex: %w", i, err)
		}
		if _, err := l.Mint(ctx, pipeline.MintArgs{
			Caller: ledger.Principal(bootstrapCaller),
			To:     ledger.DefaultAccount(ledger.Principal(holder)),
			Token:  id,
			Amount: supply,
		}); err != nil {
			return fmt.Errorf("mint genesis supply for token %d (%s): %w", i, t.Symbol, err)
		}
	}
	return nil
}
