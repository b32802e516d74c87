package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/eshaffer321/fxremit-go/pkg/remit"
	"github.com/eshaffer321/fxremit-go/pkg/remitprom"
	"github.com/eshaffer321/fxremit-go/pkg/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx := context.Background()

	// The session must already hold a login made with the fxremit CLI
	store, err := session.Open(ctx, session.Config{
		Backend:  getenv("FXREMIT_SESSION_BACKEND", session.BackendFile),
		Path:     getenv("FXREMIT_SESSION_PATH", ".fxremit_session.json"),
		RedisURL: os.Getenv("FXREMIT_REDIS_URL"),
	})
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer store.Close()

	opts := &remit.ClientOptions{
		BaseURL:   getenv("FXREMIT_BASE_URL", remit.DefaultBaseURL),
		APIKey:    os.Getenv("FXREMIT_API_KEY"),
		Store:     store,
		SentryDSN: os.Getenv("FXREMIT_SENTRY_DSN"),
	}

	// Serve client metrics when an address is configured
	if addr := os.Getenv("FXREMIT_METRICS_ADDR"); addr != "" {
		reg := prometheus.NewRegistry()
		metrics, err := remitprom.New(reg, remitprom.DefaultNamespace)
		if err != nil {
			log.Fatalf("failed to register metrics: %v", err)
		}
		opts.Hooks = metrics.Hooks()
		go serveMetrics(addr, reg)
	}

	client, err := remit.NewClient(opts)
	if err != nil {
		log.Fatalf("failed to initialize client: %v", err)
	}
	defer client.Close()

	impl := &mcp.Implementation{
		Name:    "fxremit",
		Version: "1.0.0",
	}

	server := mcp.NewServer(impl, nil)

	registerTools(server, client)

	// Run server over stdio transport
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Printf("metrics server stopped: %v", err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func registerTools(server *mcp.Server, client *remit.Client) {
	tools := &remitTools{client: client}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_rates",
		Description: "Get current exchange rates. Returns buy and sell rates per currency, optionally filtered by currency or branch.",
	}, tools.GetRates)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_deals",
		Description: "Get the logged-in customer's booked currency deals with optional date range and status filters.",
	}, tools.GetDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_branches",
		Description: "Get all branches with address, city and opening hours.",
	}, tools.GetBranches)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_purposes",
		Description: "Get the remittance purpose codes, optionally filtered by transaction type or category.",
	}, tools.GetPurposes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_session",
		Description: "Report whether a customer session is stored and which customer it belongs to.",
	}, tools.GetSession)
}
