package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
	"github.com/wricardo/mcp-training/mergegame/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

const serverInstructions = `Merge Board - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Tap generators to spawn items, then drop items onto other items of the same
type to merge them into the next item of their chain. Reach the highest level.

AVAILABLE TOOLS:
- create_session / list_sessions / get_session: manage boards
- board_state: grid, items, generators and counters
- trigger_generator: spend energy to spawn an item in the first empty slot
- drop_item: drag an item and release it on a slot (merge, move or revert)
- merge_hints: every pair that can merge right now
- describe_slot: geometry, occupant and merge partners of one slot
- drop_history: past drops with outcomes
- reset_board: rebuild the board from its config
- list_configs: available board layouts
- game_instructions: full rules`

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Merge Board",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(serverInstructions),
	)

	c.registerTools()
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a new board session with optional config selection"),
		mcp.WithString("config_id", mcp.Description("Config to use (see list_configs); default board when empty")),
	), c.handleCreateSession)

	c.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List all active board sessions"),
	), c.handleListSessions)

	c.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get details of a specific session"),
		sessionArg(),
	), c.handleGetSession)

	// Board operations
	c.mcpServer.AddTool(mcp.NewTool("board_state",
		mcp.WithDescription("Get the current board: grid, items, generators and counters"),
		sessionArg(),
	), c.handleBoardState)

	c.mcpServer.AddTool(mcp.NewTool("trigger_generator",
		mcp.WithDescription("Activate a generator. Spends energy and spawns its item in the first empty slot (row-major)."),
		sessionArg(),
		mcp.WithString("generator_id", mcp.Description("Generator ID; the first generator when empty")),
	), c.handleTriggerGenerator)

	c.mcpServer.AddTool(mcp.NewTool("drop_item",
		mcp.WithDescription("Drag an item and release it on slot (x, y). Same type with a successor merges; empty slot moves; anything else reverts."),
		sessionArg(),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("ID of the item to drag")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Target column (0-based)")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Target row (0-based)")),
		mcp.WithString("intent", mcp.Description("Why you are making this drop")),
	), c.handleDropItem)

	c.mcpServer.AddTool(mcp.NewTool("merge_hints",
		mcp.WithDescription("List every pair of items that can merge right now and whether the board is stuck"),
		sessionArg(),
	), c.handleMergeHints)

	c.mcpServer.AddTool(mcp.NewTool("describe_slot",
		mcp.WithDescription("Describe one slot: world position, occupant and merge partners"),
		sessionArg(),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Column (0-based)")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Row (0-based)")),
	), c.handleDescribeSlot)

	c.mcpServer.AddTool(mcp.NewTool("drop_history",
		mcp.WithDescription("View past drops with pagination"),
		sessionArg(),
		mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
		mcp.WithNumber("limit", mcp.Description("Drops per page (default 20, max 100)")),
		mcp.WithString("order", mcp.Description("asc or desc (default desc)")),
	), c.handleDropHistory)

	c.mcpServer.AddTool(mcp.NewTool("reset_board",
		mcp.WithDescription("Rebuild the board from its config. Drop history is kept."),
		sessionArg(),
	), c.handleReset)

	// Configuration
	c.mcpServer.AddTool(mcp.NewTool("list_configs",
		mcp.WithDescription("List available board configurations"),
	), c.handleListConfigs)

	c.mcpServer.AddTool(mcp.NewTool("game_instructions",
		mcp.WithDescription("Get the complete rules of the merge board"),
	), c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if configID := request.GetString("config_id", ""); configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Created session: %s\nConfig: %s\n\n", session.ID, session.ConfigName)
	if session.BoardState != nil {
		b.WriteString(formatBoardState(session.BoardState))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		highest := 0
		if s.BoardState != nil {
			highest = s.BoardState.Highest
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Highest level: %d, Created: %s)\n",
			s.ID, s.ConfigName, highest, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleBoardState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var state engine.BoardState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBoardState(&state)), nil
}

func (c *Client) handleTriggerGenerator(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	generatorID := request.GetString("generator_id", "")

	if generatorID == "" {
		var state engine.BoardState
		if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(state.Generators) == 0 {
			return mcp.NewToolResultError("board has no generators"), nil
		}
		generatorID = state.Generators[0].ID
	}

	var result service.SpawnResult
	path := sessionPath(sessionID, "/generators/"+url.PathEscape(generatorID)+"/trigger")
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSpawnResult(&result)), nil
}

func (c *Client) handleDropItem(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	itemID := request.GetString("item_id", "")
	if itemID == "" {
		return mcp.NewToolResultError("item_id is required"), nil
	}

	// intent is for the caller's own reasoning; the server does not use it
	_ = request.GetString("intent", "")

	body := map[string]interface{}{
		"item_id": itemID,
		"slot": map[string]int{
			"x": request.GetInt("x", -1),
			"y": request.GetInt("y", -1),
		},
	}

	var result service.DropResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/drop"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatDropResult(&result)), nil
}

func (c *Client) handleMergeHints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var hints service.MergeHints
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/hints"), nil, &hints); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMergeHints(&hints)), nil
}

func (c *Client) handleDescribeSlot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	x := request.GetInt("x", 0)
	y := request.GetInt("y", 0)

	var info service.SlotInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, fmt.Sprintf("/slots/%d/%d", x, y)), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSlotInfo(&info)), nil
}

func (c *Client) handleDropHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	query := url.Values{}
	if page := request.GetInt("page", 0); page > 0 {
		query.Set("page", fmt.Sprint(page))
	}
	if limit := request.GetInt("limit", 0); limit > 0 {
		query.Set("limit", fmt.Sprint(limit))
	}
	if order := request.GetString("order", ""); order != "" {
		query.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var response struct {
		Message string             `json:"message"`
		State   *engine.BoardState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := response.Message + "\n\n"
	if response.State != nil {
		text += formatBoardState(response.State)
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "- %s: %s (%dx%d, %d item types, %d generators)\n  %s\n",
			cfg.ConfigID, cfg.Name, cfg.Width, cfg.Height, cfg.ItemTypes, cfg.Generators, cfg.Description)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(gameInstructions), nil
}

const gameInstructions = `MERGE BOARD - RULES

THE BOARD
- A rectangular grid of slots. (0,0) is the top-left slot; x grows right, y grows down.
- Each slot holds at most one item.
- Every item has a type. Types form chains: seed -> sprout -> herb -> ...
  The last type of a chain has no successor and can never merge.

GENERATORS
- A generator spawns one item of its type into the FIRST empty slot,
  scanning row by row from the top-left.
- Each activation costs energy. No energy is spent when the board is full
  or the generator cannot afford the cost.
- Energy refills slowly over time up to the generator's maximum.

DROPPING
Pick an item up and release it somewhere. The release point decides:
1. MERGE  - released on another item of the SAME type that has a successor:
            both disappear and one successor item appears in the target slot.
2. MOVE   - released on an empty slot: the item moves there.
3. REVERT - anything else (own slot, different type, max-level item,
            outside the board): the item snaps back. Nothing changes.

STRATEGY
- Use merge_hints to see every legal merge.
- Two items of level N make one of level N+1, so level L needs 2^(L-1) spawns.
- Keep empty slots free: a full board with no merges is stuck until reset.

TOOLS
- trigger_generator -> spawns; drop_item -> merge or move; board_state -> look.`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nConfig: %s\nCreated: %s\nLast Accessed: %s\n\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.BoardState != nil {
		b.WriteString(formatBoardState(session.BoardState))
	}
	return b.String()
}

// itemGlyph picks a short label for the ASCII grid
func itemGlyph(item engine.ItemView) string {
	if item.Visual != "" {
		return item.Visual
	}
	if item.TypeID != "" {
		return item.TypeID[:1]
	}
	return "?"
}

func formatGrid(state *engine.BoardState) string {
	byID := make(map[string]engine.ItemView, len(state.Items))
	for _, item := range state.Items {
		byID[item.ID] = item
	}

	var b strings.Builder
	b.WriteString("    ")
	for x := 0; x < state.Width; x++ {
		fmt.Fprintf(&b, "%3d", x)
	}
	b.WriteString("\n")
	for y, row := range state.Rows {
		fmt.Fprintf(&b, "%3d ", y)
		for _, id := range row {
			if id == "" {
				b.WriteString("  .")
				continue
			}
			item := byID[id]
			fmt.Fprintf(&b, "%3s", fmt.Sprintf("%s%d", itemGlyph(item), item.Level))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatBoardState(state *engine.BoardState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Board: %s (%dx%d)\n", state.ConfigName, state.Width, state.Height)
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatGrid(state))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Empty slots: %d | Highest level: %d\n", state.EmptySlots, state.Highest)
	fmt.Fprintf(&b, "Drops: %d (merges %d, moves %d, reverts %d) | Spawns: %d\n",
		state.TotalDrops, state.Merges, state.Moves, state.Reverts, state.Spawns)

	if len(state.Generators) > 0 {
		b.WriteString("\nGenerators:\n")
		for _, g := range state.Generators {
			status := ""
			if g.Depleted {
				status = " (depleted)"
			}
			fmt.Fprintf(&b, "- %s -> %s: energy %d/%d, cost %d%s\n",
				g.ID, g.TypeID, g.Energy, g.MaxEnergy, g.EnergyCost, status)
		}
	}

	if len(state.Items) > 0 {
		b.WriteString("\nItems:\n")
		for _, item := range state.Items {
			maxTag := ""
			if item.MaxLevel {
				maxTag = " [max]"
			}
			fmt.Fprintf(&b, "- %s %s L%d at (%d,%d)%s\n", item.ID, item.TypeID, item.Level, item.X, item.Y, maxTag)
		}
	}
	return b.String()
}

func formatSpawnResult(result *service.SpawnResult) string {
	var b strings.Builder
	if result.Success && result.Item != nil {
		fmt.Fprintf(&b, "Spawned %s (%s) at (%d,%d)\n", result.Item.ID, result.Item.TypeID, result.Item.X, result.Item.Y)
	} else {
		fmt.Fprintf(&b, "No spawn: %s\n", result.Reason)
	}
	fmt.Fprintf(&b, "Generator %s energy: %d/%d\n", result.Generator.ID, result.Generator.Energy, result.Generator.MaxEnergy)
	if result.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", result.Message)
	}
	if result.BoardState != nil {
		b.WriteString("\n")
		b.WriteString(formatGrid(result.BoardState))
	}
	return b.String()
}

func formatDropResult(result *service.DropResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Outcome: %s\n", strings.ToUpper(string(result.Outcome)))
	if d := result.Drop; d != nil {
		fmt.Fprintf(&b, "Drop #%d: %s from (%d,%d)", d.Number, d.ItemID, d.From.X, d.From.Y)
		if d.Target != nil {
			fmt.Fprintf(&b, " onto (%d,%d)", d.Target.X, d.Target.Y)
		}
		b.WriteString("\n")
		if d.ResultItemID != "" {
			fmt.Fprintf(&b, "New item: %s (%s)\n", d.ResultItemID, d.ResultTypeID)
		}
	}
	if result.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", result.Message)
	}
	if result.BoardState != nil {
		b.WriteString("\n")
		b.WriteString(formatGrid(result.BoardState))
	}
	return b.String()
}

func formatMergeHints(hints *service.MergeHints) string {
	var b strings.Builder
	if len(hints.Pairs) == 0 {
		b.WriteString("No merges available.\n")
	} else {
		fmt.Fprintf(&b, "Merges available (%d):\n", len(hints.Pairs))
		for _, p := range hints.Pairs {
			fmt.Fprintf(&b, "- drop %s at (%d,%d) onto %s at (%d,%d): %s -> %s\n",
				p.SourceID, p.Source.X, p.Source.Y, p.TargetID, p.Target.X, p.Target.Y, p.TypeID, p.NextID)
		}
	}
	fmt.Fprintf(&b, "Empty slots: %d | Can spawn: %t\n", hints.EmptySlots, hints.CanSpawn)
	if hints.Stuck {
		b.WriteString("STUCK: no merges and no spawns possible. Reset the board.\n")
	}
	return b.String()
}

func formatSlotInfo(info *service.SlotInfo) string {
	var b strings.Builder
	if !info.Valid {
		fmt.Fprintf(&b, "Slot (%d,%d) is outside the board.\n", info.X, info.Y)
		return b.String()
	}
	fmt.Fprintf(&b, "Slot (%d,%d)", info.X, info.Y)
	if info.Position != nil {
		fmt.Fprintf(&b, " centre (%.2f, %.2f)", info.Position.X, info.Position.Y)
	}
	b.WriteString("\n")
	if info.Occupant == nil {
		b.WriteString("Empty.\n")
		return b.String()
	}
	o := info.Occupant
	fmt.Fprintf(&b, "Occupant: %s %s (level %d)", o.ID, o.TypeID, o.Level)
	if o.MaxLevel {
		b.WriteString(" [max level]")
	}
	b.WriteString("\n")
	if len(info.MergeWith) == 0 {
		b.WriteString("No merge partners on the board.\n")
	} else {
		b.WriteString("Can merge with:")
		for _, c := range info.MergeWith {
			fmt.Fprintf(&b, " (%d,%d)", c.X, c.Y)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Drop History (page %d/%d, total %d):\n\n", history.Page, history.TotalPages, history.TotalDrops)
	for _, d := range history.Drops {
		target := "outside"
		if d.Target != nil {
			target = fmt.Sprintf("(%d,%d)", d.Target.X, d.Target.Y)
		}
		fmt.Fprintf(&b, "#%d %s %s (%d,%d) -> %s: %s", d.Number, d.ItemID, d.TypeID, d.From.X, d.From.Y, target, d.Outcome)
		if d.ResultTypeID != "" {
			fmt.Fprintf(&b, " => %s", d.ResultTypeID)
		}
		b.WriteString("\n")
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore on page %d.\n", history.Page+1)
	}
	return b.String()
}
