// Package server exposes the browser operations as Model Context Protocol
// tools over a stdio transport.
package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/demon2036/browser-mcp/pkg/browser"
	"github.com/demon2036/browser-mcp/pkg/logging"
	"github.com/demon2036/browser-mcp/pkg/search"
)

const (
	serverName    = "browser-mcp"
	serverVersion = "0.1.0"

	// defaultSession is used when a tool call does not name a session.
	// Callers that want isolation pass their own session ids.
	defaultSession = "default"
)

// Server wires the browser manager and search client into MCP tools.
type Server struct {
	manager  *browser.Manager
	searcher *search.Client
	log      *logging.Logger
}

// New creates a server around manager. searcher may be nil, in which case
// the search tool is not registered.
func New(manager *browser.Manager, searcher *search.Client) *Server {
	logger, _ := logging.NewLogger("server")
	return &Server{
		manager:  manager,
		searcher: searcher,
		log:      logger,
	}
}

// NavigateArgs are the parameters of the navigate tool.
type NavigateArgs struct {
	URL     string `json:"url" jsonschema:"The URL to navigate to (can be a webpage or direct download link)"`
	Session string `json:"session,omitempty" jsonschema:"Optional session id; defaults to a shared session"`
}

// ClickArgs are the parameters of the click_element tool.
type ClickArgs struct {
	ElementNumber int    `json:"element_number" jsonschema:"The number of the element to click (1-based index)"`
	Session       string `json:"session,omitempty" jsonschema:"Optional session id; defaults to a shared session"`
}

// ForceDownloadArgs are the parameters of the force_download tool.
type ForceDownloadArgs struct {
	URL      string `json:"url" jsonschema:"The URL of the file to download"`
	Filename string `json:"filename,omitempty" jsonschema:"Optional custom filename; auto-detected from headers or URL when omitted"`
	Session  string `json:"session,omitempty" jsonschema:"Optional session id; defaults to a shared session"`
}

// SearchArgs are the parameters of the search tool.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"Search keywords"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results to return"`
}

func sessionOrDefault(id string) string {
	if id == "" {
		return defaultSession
	}
	return id
}

// resultContent renders a browser result as a single JSON text block. The
// success flag travels inside the payload, so tool calls themselves never
// error for browser-level failures.
func resultContent(result browser.Result) (*mcp.CallToolResultFor[struct{}], error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResultFor[struct{}]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(payload)},
		},
		IsError: !result.Success,
	}, nil
}

// Navigate handles the navigate tool.
func (s *Server) Navigate(ctx context.Context, req *mcp.ServerRequest[*mcp.CallToolParamsFor[NavigateArgs]]) (*mcp.CallToolResultFor[struct{}], error) {
	args := req.Params.Arguments
	s.log.Infof("navigate: session=%s url=%s", sessionOrDefault(args.Session), args.URL)
	return resultContent(s.manager.Navigate(ctx, sessionOrDefault(args.Session), args.URL))
}

// ClickElement handles the click_element tool.
func (s *Server) ClickElement(ctx context.Context, req *mcp.ServerRequest[*mcp.CallToolParamsFor[ClickArgs]]) (*mcp.CallToolResultFor[struct{}], error) {
	args := req.Params.Arguments
	s.log.Infof("click_element: session=%s number=%d", sessionOrDefault(args.Session), args.ElementNumber)
	return resultContent(s.manager.ClickElement(ctx, sessionOrDefault(args.Session), args.ElementNumber))
}

// ForceDownload handles the force_download tool.
func (s *Server) ForceDownload(ctx context.Context, req *mcp.ServerRequest[*mcp.CallToolParamsFor[ForceDownloadArgs]]) (*mcp.CallToolResultFor[struct{}], error) {
	args := req.Params.Arguments
	s.log.Infof("force_download: url=%s filename=%s", args.URL, args.Filename)
	return resultContent(s.manager.ForceDownload(ctx, sessionOrDefault(args.Session), args.URL, args.Filename))
}

// Search handles the search tool.
func (s *Server) Search(ctx context.Context, req *mcp.ServerRequest[*mcp.CallToolParamsFor[SearchArgs]]) (*mcp.CallToolResultFor[struct{}], error) {
	args := req.Params.Arguments
	results, err := s.searcher.Search(ctx, args.Query, args.MaxResults)
	if err != nil {
		return &mcp.CallToolResultFor[struct{}]{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("search failed: %v", err)},
			},
			IsError: true,
		}, nil
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search results: %w", err)
	}
	return &mcp.CallToolResultFor[struct{}]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(payload)},
		},
	}, nil
}

// Run registers all tools and serves MCP requests on stdio until ctx is
// cancelled or the transport closes.
func (s *Server) Run(ctx context.Context) error {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "navigate",
		Description: "Navigate to a URL and analyze interactive elements. Handles both regular pages and direct download links. Detects automatic downloads triggered by navigation.",
	}, s.Navigate)
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "click_element",
		Description: "Click an interactive element by its number with download detection",
	}, s.ClickElement)
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "force_download",
		Description: "Force download a file from URL. Automatically detects filename from headers or URL. Uses multiple download strategies to handle different file types.",
	}, s.ForceDownload)
	if s.searcher != nil {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        "search",
			Description: "Search the web and return titles, URLs and snippets",
		}, s.Search)
	}

	s.log.Infof("serving MCP requests on stdio")
	return mcpServer.Run(ctx, &mcp.StdioTransport{})
}
