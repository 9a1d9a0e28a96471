/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the claims ledger gateway server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Dial the ledger node and wire services (factory)
  3. Create API handler with dependencies
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -rpc      Ledger node RPC URL (default: http://localhost:8545)
  -policy   Policy registry contract address (required)
  -claim    Claim workflow contract address (required)
  -schema   Claim record schema generation, 1 or 2 (default: 2)
  -mirror   SQLite path for the event mirror (default: none, in-memory)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the RPC connection and mirror
  4. Exit

EXAMPLES:
  # Against a local dev ledger, canonical schema
  ./server -policy=0xPolicy... -claim=0xClaim...

  # Legacy deployment with a persistent mirror
  ./server -policy=0x... -claim=0x... -schema=1 -mirror=./data/events.db

SEE ALSO:
  - api/server.go: Router configuration
  - factory/factory.go: Dependency wiring
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/claims-ledger/api"
	"github.com/warp/claims-ledger/factory"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	rpcURL := flag.String("rpc", "http://localhost:8545", "ledger node RPC URL")
	policyAddr := flag.String("policy", "", "policy registry contract address")
	claimAddr := flag.String("claim", "", "claim workflow contract address")
	schema := flag.String("schema", "2", "claim record schema generation (1 or 2)")
	mirrorPath := flag.String("mirror", "", "SQLite path for the event mirror (empty = in-memory)")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	sys, err := factory.New(ctx, factory.Config{
		RPCURL:     *rpcURL,
		PolicyAddr: *policyAddr,
		ClaimAddr:  *claimAddr,
		Schema:     *schema,
		MirrorPath: *mirrorPath,
	})
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer sys.Close()

	// Initialize handler and router
	handler := api.NewHandler(sys.Claims, sys.Policies, sys.Client, sys.Backend)
	handler.Contracts = map[string]api.RawContract{
		"policy": sys.PolicyContract,
		"claim":  sys.ClaimContract,
	}
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("Ledger node: %s (schema %s)", *rpcURL, *schema)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
