// Package rpc exposes form search over a JSON-RPC 2.0 endpoint compatible
// with tool-calling clients: search_legal_forms can be invoked directly or
// through the tools/list + tools/call envelope.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/courtdata/formdex/internal/domain"
	searchuc "github.com/courtdata/formdex/internal/usecase/search"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Searcher runs semantic retrieval over the form store.
type Searcher interface {
	Search(ctx context.Context, p searchuc.Params) ([]domain.SearchResult, error)
}

// Handler serves the JSON-RPC surface.
type Handler struct {
	searcher Searcher
	logger   *zap.Logger
}

func NewHandler(searcher Searcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{searcher: searcher, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, response{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: codeParseError, Message: "parse error"},
			ID:      null(),
		})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeResponse(w, response{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: codeInvalidRequest, Message: "invalid request"},
			ID:      idOrNull(req.ID),
		})
		return
	}

	var resp response
	switch req.Method {
	case "search_legal_forms":
		resp = h.searchLegalForms(r.Context(), req)
	case "tools/list":
		resp = response{JSONRPC: "2.0", Result: map[string]any{"tools": toolDefinitions}, ID: idOrNull(req.ID)}
	case "tools/call":
		resp = h.toolsCall(r.Context(), req)
	default:
		resp = response{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: codeMethodNotFound, Message: "Method not found: " + req.Method},
			ID:      idOrNull(req.ID),
		}
	}
	writeResponse(w, resp)
}

type searchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResult struct {
	FormCode   string  `json:"form_code"`
	Title      string  `json:"title"`
	Topic      string  `json:"topic"`
	URL        string  `json:"url"`
	Similarity float64 `json:"similarity"`
}

type searchResultSet struct {
	Query      string         `json:"query"`
	Results    []searchResult `json:"results"`
	TotalFound int            `json:"total_found"`
}

func (h *Handler) searchLegalForms(ctx context.Context, req request) response {
	var params searchParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(req.ID, codeInvalidParams, "invalid params")
		}
	}
	if params.Query == "" {
		return errResponse(req.ID, codeInvalidParams, "query is required")
	}

	set, err := h.runSearch(ctx, params)
	if err != nil {
		return h.domainError(req.ID, err)
	}
	return response{JSONRPC: "2.0", Result: set, ID: idOrNull(req.ID)}
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (h *Handler) toolsCall(ctx context.Context, req request) response {
	var call toolCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &call); err != nil {
			return errResponse(req.ID, codeInvalidParams, "invalid params")
		}
	}
	if call.Name != "search_legal_forms" {
		return errResponse(req.ID, codeMethodNotFound, "Unknown tool: "+call.Name)
	}

	var params searchParams
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &params); err != nil {
			return errResponse(req.ID, codeInvalidParams, "invalid arguments")
		}
	}
	if params.Query == "" {
		return errResponse(req.ID, codeInvalidParams, "query is required")
	}

	set, err := h.runSearch(ctx, params)
	if err != nil {
		return h.domainError(req.ID, err)
	}
	return response{
		JSONRPC: "2.0",
		Result: map[string]any{
			"content": []map[string]any{{"type": "text", "text": renderResultSet(set)}},
		},
		ID: idOrNull(req.ID),
	}
}

func (h *Handler) runSearch(ctx context.Context, params searchParams) (searchResultSet, error) {
	results, err := h.searcher.Search(ctx, searchuc.Params{Query: params.Query, Limit: params.Limit})
	if err != nil {
		return searchResultSet{}, err
	}

	out := make([]searchResult, len(results))
	for i, res := range results {
		out[i] = searchResult{
			FormCode:   res.Form.Code,
			Title:      res.Form.Title,
			Topic:      res.Form.Topic,
			URL:        res.Form.URL,
			Similarity: res.Similarity,
		}
	}
	return searchResultSet{Query: params.Query, Results: out, TotalFound: len(out)}, nil
}

func (h *Handler) domainError(id json.RawMessage, err error) response {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return errResponse(id, codeInvalidParams, err.Error())
	default:
		h.logger.Warn("rpc search failed", zap.Error(err))
		return errResponse(id, codeInternalError, "search unavailable")
	}
}

func renderResultSet(set searchResultSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d legal forms for query: '%s'\n\n", set.TotalFound, set.Query)
	for i, res := range set.Results {
		fmt.Fprintf(&b, "%d. %s - %s\n   Topic: %s\n   Similarity: %.3f\n",
			i+1, res.FormCode, res.Title, res.Topic, res.Similarity)
		if res.URL != "" {
			fmt.Fprintf(&b, "   URL: %s\n", res.URL)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

var toolDefinitions = []map[string]any{
	{
		"name":        "search_legal_forms",
		"description": "Search California legal forms using semantic similarity",
		"inputSchema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query for legal forms",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     5,
				},
			},
			"required": []string{"query"},
		},
	},
}

func errResponse(id json.RawMessage, code int, message string) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: message}, ID: idOrNull(id)}
}

func writeResponse(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return null()
	}
	return id
}

func null() json.RawMessage {
	return json.RawMessage("null")
}
