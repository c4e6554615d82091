// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the music library for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/trackservice"
)

// View is the URL scope used for tracks returned over MCP.
const View = "mcp"

// Server wraps the MCP server with library tools.
type Server struct {
	mcp *server.MCPServer
	svc *trackservice.Service
}

// New creates a new MCP server with all library tools registered.
func New(svc *trackservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Tonearm",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tracks",
		mcp.WithDescription("List stored library records in library order, with title, artist, album, duration and fingerprint."),
	), s.listTracks)

	s.mcp.AddTool(mcp.NewTool("get_catalog",
		mcp.WithDescription("List the playable catalog: bundled tracks first, then the imported library."),
	), s.getCatalog)

	s.mcp.AddTool(mcp.NewTool("search_tracks",
		mcp.WithDescription("Full-text search over track titles, artists and albums. Returns matching track IDs with a snippet."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search words; each word must match")),
	), s.searchTracks)

	s.mcp.AddTool(mcp.NewTool("import_files",
		mcp.WithDescription("Import local audio files into the library. "+
			"Non-audio files and files already imported (same name and size) are skipped. "+
			"Read the library guide via get_library_guide for supported formats."),
		mcp.WithString("paths", mcp.Required(), mcp.Description("Absolute file paths separated by commas or newlines")),
	), s.importFiles)

	s.mcp.AddTool(mcp.NewTool("import_url",
		mcp.WithDescription("Download one audio file from an http(s) URL or a base64 data: URI and import it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:audio/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; the title is derived from it when the file has no tags")),
	), s.importURL)

	s.mcp.AddTool(mcp.NewTool("rescan_library",
		mcp.WithDescription("Re-extract metadata for tracks still carrying placeholder title, artist, album or duration."),
	), s.rescanLibrary)

	s.mcp.AddTool(mcp.NewTool("wipe_library",
		mcp.WithDescription("Delete every imported track, its audio and its cover. Bundled tracks are kept."),
		mcp.WithString("confirm", mcp.Required(), mcp.Description(`Must be "yes"`)),
	), s.wipeLibrary)

	s.mcp.AddTool(mcp.NewTool("get_library_guide",
		mcp.WithDescription("Returns the supported formats and the metadata rules applied on import."),
	), s.getLibraryGuide)

	s.mcp.AddResource(
		mcp.NewResource(GuideURI, "Library Guide",
			mcp.WithResourceDescription("Supported audio formats and how imported files become tracks."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listTracks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.svc.Records(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("library is empty"), nil
	}
	return jsonResult(records), nil
}

func (s *Server) getCatalog(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tracks, err := s.svc.Catalog(ctx, View)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tracks), nil
}

func (s *Server) searchTracks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.Search(query, index.DefaultLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(hits), nil
}

// splitPaths accepts comma and newline separated lists.
func splitPaths(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (s *Server) importFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := splitPaths(raw)
	if len(paths) == 0 {
		return mcp.NewToolResultError("no paths given"), nil
	}

	added, err := s.svc.ImportPaths(ctx, paths)
	if err != nil && len(added) == 0 {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "imported %d of %d file(s)", len(added), len(paths))
	for _, t := range added {
		fmt.Fprintf(&b, "\n%s\t%s", t.ID, t.Title)
	}
	if err != nil {
		fmt.Fprintf(&b, "\nerrors: %v", err)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) rescanLibrary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Rescan(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report), nil
}

func (s *Server) wipeLibrary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm, err := req.RequireString("confirm")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if confirm != "yes" {
		return mcp.NewToolResultError(`refusing to wipe: confirm must be "yes"`), nil
	}
	if err := s.svc.Wipe(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("library wiped"), nil
}

func (s *Server) getLibraryGuide(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LibraryGuide), nil
}

func (s *Server) readGuideResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GuideURI,
			MIMEType: "text/markdown",
			Text:     LibraryGuide,
		},
	}, nil
}
