package mcp

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/idilsaglam/todo-copilot/internal/copilot"
)

// Resource URIs served by the handler.
const (
	URIContext = "todo://context"
	URIItems   = "todo://items"

	promptInstructions = "instructions"
)

// Options wires the handler to the assistant integration.
type Options struct {
	Name      string
	Version   string
	Registry  *copilot.Registry
	Readables *copilot.Readables
	Popup     copilot.Popup

	// ItemsJSON returns the raw list as a JSON array. Optional.
	ItemsJSON func() string
}

// sessionState holds per-session data.
type sessionState struct {
	id     string
	client Implementation
}

// Handler implements the MCP Streamable HTTP server endpoint
// (single JSON responses, no server-initiated streams).
type Handler struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// NewHandler creates an MCP handler.
func NewHandler(opts Options) *Handler {
	if opts.Name == "" {
		opts.Name = "todo-copilot"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Readables == nil {
		opts.Readables = copilot.NewReadables()
	}
	return &Handler{
		opts:     opts,
		sessions: make(map[string]*sessionState),
	}
}

// Sessions returns the number of open sessions.
func (h *Handler) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusOK, newErrorResponse(nil, CodeParseError, "Parse error"))
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInvalidRequest, "Invalid request"))
		return
	}

	var sess *sessionState
	if sid := r.Header.Get("Mcp-Session-Id"); sid != "" && req.Method != "initialize" {
		var ok bool
		if sess, ok = h.session(sid); !ok {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
	}

	switch req.Method {
	case "initialize":
		h.handleInitialize(w, &req)
	case "notifications/initialized", "notifications/cancelled":
		w.WriteHeader(http.StatusAccepted)
	case "ping":
		h.reply(w, &req, json.RawMessage(`{}`))
	case "tools/list":
		h.handleToolsList(w, &req)
	case "tools/call":
		h.handleToolsCall(w, r, &req, sess)
	case "resources/list":
		h.handleResourcesList(w, &req)
	case "resources/read":
		h.handleResourcesRead(w, &req)
	case "prompts/list":
		h.handlePromptsList(w, &req)
	case "prompts/get":
		h.handlePromptsGet(w, &req)
	default:
		if req.IsNotification() {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeMethodNotFound, "Method not found: "+req.Method))
	}
}

func (h *Handler) handleInitialize(w http.ResponseWriter, req *Request) {
	var params InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInvalidParams, "Invalid params: "+err.Error()))
			return
		}
	}

	sessionID := generateSessionID()
	h.mu.Lock()
	h.sessions[sessionID] = &sessionState{id: sessionID, client: params.ClientInfo}
	h.mu.Unlock()
	log.Printf("mcp: session %s opened by %q", sessionID, params.ClientInfo.Name)

	result := InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    json.RawMessage(`{"tools":{},"resources":{},"prompts":{}}`),
		ServerInfo: Implementation{
			Name:    h.opts.Name,
			Version: h.opts.Version,
		},
		Instructions: h.opts.Popup.Instructions,
	}

	w.Header().Set("Mcp-Session-Id", sessionID)
	h.reply(w, req, result)
}

func (h *Handler) handleToolsList(w http.ResponseWriter, req *Request) {
	tools := []Tool{}
	if h.opts.Registry != nil {
		for _, a := range h.opts.Registry.List() {
			schema, err := json.Marshal(a.JSONSchema())
			if err != nil {
				log.Printf("mcp: schema for %q: %v", a.Name, err)
				continue
			}
			tools = append(tools, Tool{Name: a.Name, Description: a.Description, InputSchema: schema})
		}
	}
	h.reply(w, req, ToolsListResult{Tools: tools})
}

// session looks up an open session. Requests without a session id are
// served statelessly.
func (h *Handler) session(id string) (*sessionState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Handler) handleToolsCall(w http.ResponseWriter, r *http.Request, req *Request, sess *sessionState) {
	var params ToolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInvalidParams, "Invalid params: "+err.Error()))
		return
	}

	args := map[string]any{}
	if len(params.Arguments) > 0 && string(params.Arguments) != "null" {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInvalidParams, "Invalid arguments: "+err.Error()))
			return
		}
	}

	if h.opts.Registry == nil {
		writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInvalidParams, "Unknown tool: "+params.Name))
		return
	}
	if err := h.opts.Registry.Dispatch(r.Context(), params.Name, args); err != nil {
		if errors.Is(err, copilot.ErrUnknownAction) {
			writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInvalidParams, "Unknown tool: "+params.Name))
			return
		}
		writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInternalError, err.Error()))
		return
	}
	if sess != nil {
		log.Printf("mcp: tools/call %q by %q (session %s)", params.Name, sess.client.Name, sess.id)
	} else {
		log.Printf("mcp: tools/call %q", params.Name)
	}

	h.reply(w, req, ToolsCallResult{Content: []ContentItem{}})
}

func (h *Handler) handleResourcesList(w http.ResponseWriter, req *Request) {
	resources := []Resource{{
		URI:         URIContext,
		Name:        "context",
		Description: "Everything the assistant can read about the app",
		MimeType:    "text/plain",
	}}
	if h.opts.ItemsJSON != nil {
		resources = append(resources, Resource{
			URI:         URIItems,
			Name:        "items",
			Description: "The todo list as a JSON array",
			MimeType:    "application/json",
		})
	}
	h.reply(w, req, ResourcesListResult{Resources: resources})
}

func (h *Handler) handleResourcesRead(w http.ResponseWriter, req *Request) {
	var params ResourcesReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInvalidParams, "Invalid params: "+err.Error()))
		return
	}

	var contents ResourceContents
	switch {
	case params.URI == URIContext:
		contents = ResourceContents{URI: URIContext, MimeType: "text/plain", Text: h.opts.Readables.Context()}
	case params.URI == URIItems && h.opts.ItemsJSON != nil:
		contents = ResourceContents{URI: URIItems, MimeType: "application/json", Text: h.opts.ItemsJSON()}
	default:
		writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInvalidParams, "Unknown resource: "+params.URI))
		return
	}
	h.reply(w, req, ResourcesReadResult{Contents: []ResourceContents{contents}})
}

func (h *Handler) handlePromptsList(w http.ResponseWriter, req *Request) {
	h.reply(w, req, PromptsListResult{Prompts: []Prompt{{
		Name:        promptInstructions,
		Description: h.opts.Popup.Title,
	}}})
}

func (h *Handler) handlePromptsGet(w http.ResponseWriter, req *Request) {
	var params PromptsGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInvalidParams, "Invalid params: "+err.Error()))
		return
	}
	if params.Name != promptInstructions {
		writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInvalidParams, "Unknown prompt: "+params.Name))
		return
	}

	h.reply(w, req, PromptsGetResult{
		Description: h.opts.Popup.Title,
		Messages: []PromptMessage{
			{Role: "user", Content: ContentItem{Type: "text", Text: h.opts.Popup.Instructions}},
			{Role: "assistant", Content: ContentItem{Type: "text", Text: h.opts.Popup.Initial}},
		},
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID != "" {
		h.mu.Lock()
		_, ok := h.sessions[sessionID]
		delete(h.sessions, sessionID)
		h.mu.Unlock()
		if !ok {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		log.Printf("mcp: session %s terminated", sessionID)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) reply(w http.ResponseWriter, req *Request, result any) {
	resp, err := newSuccessResponse(req.ID, result)
	if err != nil {
		writeJSON(w, http.StatusOK, newErrorResponse(req.ID, CodeInternalError, "internal error"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("mcp: writeJSON error: %v", err)
	}
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
