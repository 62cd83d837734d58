// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes KDOC document tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/kdoc/internal/docservice"
	"github.com/starford/kdoc/internal/index"
	"github.com/starford/kdoc/internal/kdoc"
)

// Server wraps the MCP server with document tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
	now func() time.Time
}

// New creates a new MCP server with all document tools registered.
func New(svc *docservice.Service, version string) *Server {
	s := &Server{svc: svc, now: time.Now}

	s.mcp = server.NewMCPServer(
		"KDOC knowledge store",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Ranked search over knowledge documents. Title and aliases weigh most, then keywords, name, summary and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("top_k", mcp.Description(fmt.Sprintf("Number of results, %d-%d (default %d)", index.MinTopK, index.MaxTopK, index.DefaultTopK))),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full text of a knowledge document."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Document file name (e.g. faq_shipping.txt)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents with title, type and snippet."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("validate_kdoc",
		mcp.WithDescription("Check text against the KDOC v1 rules and return every problem found."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Document text")),
	), s.validateKDOC)

	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Create or overwrite a document. Text MUST be valid KDOC v1; read the contract "+
			"first via the get_kdoc_contract tool or the "+FormatURI+" resource. Pass old_name to rename."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Document file name")),
		mcp.WithString("text", mcp.Required(), mcp.Description("KDOC v1 text")),
		mcp.WithString("old_name", mcp.Description("Previous name when renaming")),
	), s.saveDocument)

	s.mcp.AddTool(mcp.NewTool("get_kdoc_contract",
		mcp.WithDescription("Returns the KDOC v1 format contract. "+
			"Call this before creating or updating documents to ensure correct structure."),
	), s.getContract)

	s.mcp.AddTool(mcp.NewTool("get_template",
		mcp.WithDescription("Returns a KDOC skeleton for a document type, or the aliases snippet for 'synonyms'."),
		mcp.WithString("doc_type", mcp.Required(), mcp.Description("One of: "+strings.Join(kdoc.TemplateKeys(), ", "))),
	), s.getTemplate)

	s.mcp.AddTool(mcp.NewTool("attach_image",
		mcp.WithDescription("Attach a JPEG, PNG or WebP image to a document from an http(s) URL or a base64 data: URI."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Owning document name")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI")),
		mcp.WithString("file_name", mcp.Description("Optional file name")),
		mcp.WithString("caption", mcp.Description("Optional caption")),
	), s.attachImage)

	// Resource: format contract.
	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "KDOC Format Contract",
			mcp.WithResourceDescription("KDOC v1 format that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("top_k", index.DefaultTopK))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Get(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) listDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(docs), nil
}

func (s *Server) validateKDOC(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(kdoc.Validate(text)), nil
}

func (s *Server) saveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res := kdoc.Validate(text); !res.OK {
		return mcp.NewToolResultError("invalid KDOC: " + strings.Join(res.Errors, "; ")), nil
	}
	text = strings.TrimSpace(text)
	if canonical, ok := kdoc.Canonicalize(text); ok {
		text = canonical
	}
	doc, err := s.svc.Save(ctx, name, req.GetString("old_name", ""), text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s (%d characters)", doc.Name, doc.Characters)), nil
}

func (s *Server) getContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) getTemplate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("doc_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := kdoc.Template(key, s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
