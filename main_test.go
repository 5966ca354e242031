package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/mergegame/game/journal"
	"github.com/wricardo/mcp-training/mergegame/transport/websocket"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}

	expectedAppName := "Merge Board Server"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

func findFlag(cmd *cli.Command, name string) cli.Flag {
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			if n == name {
				return f
			}
		}
	}
	return nil
}

func TestFlagDefaults(t *testing.T) {
	app := newApp()

	port, ok := findFlag(app, "port").(*cli.IntFlag)
	if !ok || port.Value <= 0 || port.Value > 65535 {
		t.Errorf("Invalid default port: %+v", port)
	}
	host, ok := findFlag(app, "host").(*cli.StringFlag)
	if !ok || host.Value == "" {
		t.Error("Host should have a default value")
	}
	dir, ok := findFlag(app, "config-dir").(*cli.StringFlag)
	if !ok || dir.Value != "configs" {
		t.Error("Config directory should default to configs")
	}
	regen, ok := findFlag(app, "regen-interval").(*cli.DurationFlag)
	if !ok || regen.Value <= 0 {
		t.Error("Regeneration should be on by default")
	}
	if findFlag(app, "journal-dir") == nil || findFlag(app, "ngrok-domain") == nil {
		t.Error("Expected journal and ngrok flags")
	}

	names := map[string]bool{}
	for _, sub := range app.Commands {
		names[sub.Name] = true
		for _, alias := range sub.Aliases {
			names[alias] = true
		}
	}
	for _, want := range []string{"server", "stdio-mcp", "mcp"} {
		if !names[want] {
			t.Errorf("Missing subcommand %q", want)
		}
	}
}

func TestInitializeServices(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	svcs, err := initializeServices(options{configDir: "configs"})
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.Close()

	if svcs.game == nil || svcs.sessions == nil {
		t.Fatal("Expected game service and session manager")
	}
	if svcs.journal != nil {
		t.Error("Journal should be off without a directory")
	}

	configs, err := svcs.game.ListConfigs(context.Background())
	if err != nil {
		t.Fatalf("ListConfigs: %v", err)
	}
	if len(configs) == 0 {
		t.Error("Expected configs from the configs directory")
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	_, err := initializeServices(options{configDir: "/non/existent/path"})
	if err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestInitializeServices_Journal(t *testing.T) {
	ctx := context.Background()
	journalDir := t.TempDir()

	svcs, err := initializeServices(options{configDir: t.TempDir(), journalDir: journalDir})
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	info, err := svcs.game.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := svcs.game.TriggerGenerator(ctx, info.ID, "seed-bag"); err != nil {
		t.Fatalf("TriggerGenerator: %v", err)
	}
	svcs.Close()

	entries, err := journal.ReadSession(journalDir, info.ID)
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("Expected journal entries for the session")
	}
	var spawned bool
	for _, e := range entries {
		if e.Event.Type == "spawned" {
			spawned = true
		}
	}
	if !spawned {
		t.Errorf("Expected a spawned event in %+v", entries)
	}
}

func TestRegenerateOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svcs, err := initializeServices(options{configDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	// Full generators do not change
	info, err := svcs.game.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if n := regenerateOnce(ctx, svcs.game, hub, 5); n != 0 {
		t.Errorf("Expected no changes on full generators, got %d", n)
	}

	if _, err := svcs.game.TriggerGenerator(ctx, info.ID, "seed-bag"); err != nil {
		t.Fatalf("TriggerGenerator: %v", err)
	}
	if n := regenerateOnce(ctx, svcs.game, hub, 5); n != 1 {
		t.Errorf("Expected one session refilled, got %d", n)
	}

	state, err := svcs.game.GetBoardState(ctx, info.ID)
	if err != nil {
		t.Fatalf("GetBoardState: %v", err)
	}
	g := state.Generators[0]
	if g.Energy != g.MaxEnergy {
		t.Errorf("Energy = %d, want refilled to %d", g.Energy, g.MaxEnergy)
	}

	// No hub is fine
	if n := regenerateOnce(ctx, svcs.game, nil, 5); n != 0 {
		t.Errorf("Expected no changes, got %d", n)
	}
}

func TestNewHandler(t *testing.T) {
	svcs, err := initializeServices(options{configDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	server := httptest.NewUnstartedServer(nil)
	server.Config.Handler = newHandler(svcs.game, nil, "http://"+server.Listener.Addr().String())
	server.Start()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/mcp")
	if err != nil {
		t.Fatalf("GET /mcp: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /mcp status = %d, want 405", resp.StatusCode)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	resp, err = http.Post(server.URL+"/mcp", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /mcp: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /mcp status = %d", resp.StatusCode)
	}
	data := new(strings.Builder)
	if _, err := data.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(data.String(), "Merge Board") {
		t.Errorf("Expected server info in initialize response: %s", data.String())
	}
}

func TestExternalAPIAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	if !externalAPIAvailable(server.URL) {
		t.Error("Expected running server to be available")
	}
	url := server.URL
	server.Close()
	if externalAPIAvailable(url) {
		t.Error("Expected closed server to be unavailable")
	}
}

func TestSessionCleanupRoutine_StopsOnCancel(t *testing.T) {
	svcs, err := initializeServices(options{configDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, svcs.sessions, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup routine did not stop")
	}
}
