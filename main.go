// Command mergegame starts the merge board server.
//
// It supports two modes:
//  1. "server" (default): runs the HTTP server exposing the REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp": runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags (each also read from the environment) control host/port, config
// directory, debug logging, the event journal, energy regeneration, session
// expiry, and optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/mergegame/api"
	"github.com/wricardo/mcp-training/mergegame/game/config"
	"github.com/wricardo/mcp-training/mergegame/game/journal"
	"github.com/wricardo/mcp-training/mergegame/game/service"
	"github.com/wricardo/mcp-training/mergegame/game/session"
	"github.com/wricardo/mcp-training/mergegame/transport/mcp"
	"github.com/wricardo/mcp-training/mergegame/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Merge Board Server"
)

// options are the resolved command line settings
type options struct {
	host          string
	port          int
	configDir     string
	debug         bool
	journalDir    string
	regenInterval time.Duration
	regenAmount   int
	sessionTTL    time.Duration
	ngrok         bool
	ngrokAuth     string
	ngrokDomain   string
}

func optionsFrom(cmd *cli.Command) options {
	return options{
		host:          cmd.String("host"),
		port:          cmd.Int("port"),
		configDir:     cmd.String("config-dir"),
		debug:         cmd.Bool("debug"),
		journalDir:    cmd.String("journal-dir"),
		regenInterval: cmd.Duration("regen-interval"),
		regenAmount:   cmd.Int("regen-amount"),
		sessionTTL:    cmd.Duration("session-ttl"),
		ngrok:         cmd.Bool("ngrok"),
		ngrokAuth:     cmd.String("ngrok-auth"),
		ngrokDomain:   cmd.String("ngrok-domain"),
	}
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
		&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
		&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "directory containing board configurations", Sources: cli.EnvVars("CONFIG_DIR")},
		&cli.BoolFlag{Name: "debug", Usage: "enable debug logging", Sources: cli.EnvVars("DEBUG")},
		&cli.StringFlag{Name: "journal-dir", Usage: "write game events as hourly zstd JSONL files here (disabled when empty)", Sources: cli.EnvVars("JOURNAL_DIR")},
		&cli.DurationFlag{Name: "regen-interval", Value: 10 * time.Second, Usage: "how often generators regain energy (0 disables)", Sources: cli.EnvVars("REGEN_INTERVAL")},
		&cli.IntFlag{Name: "regen-amount", Value: 0, Usage: "energy restored per tick; 0 uses each generator's configured rate", Sources: cli.EnvVars("REGEN_AMOUNT")},
		&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "remove sessions idle for longer than this", Sources: cli.EnvVars("SESSION_TTL")},
		&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

// newApp builds the root command. The root action runs the HTTP server.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "mergegame",
		Usage:   AppName,
		Version: Version,
		Flags:   globalFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			} else {
				log.SetFlags(log.LstdFlags)
			}
			return ctx, nil
		},
		Action: serverAction,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  serverAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run MCP stdio server backed by an external or internal HTTP API",
				Action:  stdioAction,
			},
		},
	}
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	log.Printf("Starting %s v%s (mode: server)", AppName, Version)

	svcs, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runHTTPServer(ctx, opts, svcs)
}

func stdioAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	log.Printf("Starting %s v%s (mode: stdio-mcp)", AppName, Version)

	svcs, err := initializeServices(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.Close()

	return runStdioMCPWithInternalServer(ctx, opts, svcs)
}

// services bundles what the transports need
type services struct {
	game     service.GameService
	sessions *session.Manager
	journal  *journal.Journal
}

// Close flushes the journal
func (s *services) Close() {
	if s.journal == nil {
		return
	}
	if err := s.journal.Close(); err != nil {
		log.Printf("[JOURNAL] close failed: %v", err)
	}
}

// initializeServices wires session/config managers, the optional journal and
// the game service.
func initializeServices(opts options) (*services, error) {
	configManager, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	svcs := &services{sessions: session.NewManager()}

	var serviceOpts []service.Option
	if opts.journalDir != "" {
		svcs.journal = journal.New(opts.journalDir)
		serviceOpts = append(serviceOpts, service.WithEventSink(svcs.journal))
		log.Printf("[JOURNAL] recording events to %s", opts.journalDir)
	}

	svcs.game = service.NewGameService(svcs.sessions, configManager, serviceOpts...)
	return svcs, nil
}

// startBackground runs the regeneration and session cleanup loops until ctx ends
func startBackground(ctx context.Context, opts options, svcs *services, hub *websocket.Hub) {
	if opts.regenInterval > 0 {
		go regenLoop(ctx, svcs.game, hub, opts.regenInterval, opts.regenAmount)
	}
	if opts.sessionTTL > 0 {
		go sessionCleanupRoutine(ctx, svcs.sessions, opts.sessionTTL)
	}
}

func regenLoop(ctx context.Context, game service.GameService, hub *websocket.Hub, interval time.Duration, amount int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			regenerateOnce(ctx, game, hub, amount)
		}
	}
}

// regenerateOnce refills every session's generators and pushes the new state
// of each changed session to its watchers. It returns the number of sessions changed.
func regenerateOnce(ctx context.Context, game service.GameService, hub *websocket.Hub, amount int) int {
	results, err := game.RegenerateAll(ctx, amount)
	if err != nil {
		log.Printf("[REGEN] failed: %v", err)
		return 0
	}
	for _, r := range results {
		if hub == nil || hub.ClientCount(r.SessionID) == 0 {
			continue
		}
		state, err := game.GetBoardState(ctx, r.SessionID)
		if err != nil {
			continue
		}
		hub.BroadcastState(r.SessionID, state, nil)
	}
	if len(results) > 0 {
		log.Printf("[REGEN] refilled generators in %d sessions", len(results))
	}
	return len(results)
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the provided retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration) {
	interval := time.Hour
	if ttl < interval {
		interval = ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// mcpHandler serves single JSON-RPC messages against the MCP server
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newHandler builds the full HTTP surface: REST API, websocket and /mcp
func newHandler(game service.GameService, hub *websocket.Hub, baseURL string) http.Handler {
	apiServer := api.NewServer(game, hub)
	apiServer.Handle("/mcp", mcpHandler(mcp.NewClient(baseURL)))
	return apiServer
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel. It returns when ctx ends.
func runHTTPServer(ctx context.Context, opts options, svcs *services) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)
	startBackground(ctx, opts, svcs, hub)

	addr := opts.addr()
	handler := newHandler(svcs.game, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
			cancel()
		}
	}()

	if opts.ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, opts, handler)
		}()
	}

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx ends
func runNgrok(ctx context.Context, opts options, handler http.Handler) {
	if opts.ngrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.Printf("Using custom ngrok domain: %s", opts.ngrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// externalAPIAvailable reports whether a server already answers at baseURL
func externalAPIAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// startInternalServer serves the API on a random loopback port and returns its base URL
func startInternalServer(ctx context.Context, opts options, svcs *services) (string, *http.Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}
	baseURL := "http://" + listener.Addr().String()

	hub := websocket.NewHub()
	go hub.Run(ctx)
	startBackground(ctx, opts, svcs, hub)

	httpServer := &http.Server{Handler: api.NewServer(svcs.game, hub)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Internal HTTP server error: %v", err)
		}
	}()
	return baseURL, httpServer, nil
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It reuses an external API on the configured host and port when one answers;
// otherwise it starts an internal HTTP API on a random loopback port.
func runStdioMCPWithInternalServer(ctx context.Context, opts options, svcs *services) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	baseURL := "http://" + opts.addr()
	log.Printf("Checking for external API server at %s...", baseURL)

	if externalAPIAvailable(baseURL) {
		log.Printf("External API server found at %s, using it for MCP", baseURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")
		internalURL, httpServer, err := startInternalServer(ctx, opts, svcs)
		if err != nil {
			return err
		}
		defer httpServer.Close()
		baseURL = internalURL
		log.Printf("Internal HTTP server on %s for MCP stdio", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Println("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
