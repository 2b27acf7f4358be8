// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes katac tools for LLM integration via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/katac/internal/days"
	"github.com/starford/katac/internal/katas"
	"github.com/starford/katac/internal/practice"
)

const layoutURI = "katac://kata-layout"

// Server wraps the MCP server with katac tools.
type Server struct {
	mcp *server.MCPServer
	svc *practice.Service
}

// KataInfo is one entry of the list_katas result.
type KataInfo struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// DayInfo is the current_day result.
type DayInfo struct {
	Workspace string `json:"workspace"`
	Day       int    `json:"day"`
	Name      string `json:"name"`
	Path      string `json:"path"`
}

// New creates a new MCP server with all katac tools registered.
func New(svc *practice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"katac",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_katas",
		mcp.WithDescription("List every kata known to the workspace, with README metadata."),
	), s.listKatas)

	s.mcp.AddTool(mcp.NewTool("current_day",
		mcp.WithDescription("Return the current day number and folder. Day 0 means no day exists yet."),
	), s.currentDay)

	s.mcp.AddTool(mcp.NewTool("list_day_katas",
		mcp.WithDescription("List the katas copied into the current day."),
	), s.listDayKatas)

	s.mcp.AddTool(mcp.NewTool("copy_katas",
		mcp.WithDescription("Copy katas into a new day folder. All katas of one call land in the same day."),
		mcp.WithString("names", mcp.Required(), mcp.Description("Kata names separated by commas or spaces")),
	), s.copyKatas)

	s.mcp.AddTool(mcp.NewTool("random_katas",
		mcp.WithDescription("Pick random katas and copy them into a new day folder."),
		mcp.WithNumber("count", mcp.Required(), mcp.Description("Number of distinct katas to pick")),
	), s.randomKatas)

	s.mcp.AddTool(mcp.NewTool("create_kata",
		mcp.WithDescription("Create a new kata with a default runner. "+
			"Read the kata layout via the get_kata_layout tool or the katac://kata-layout resource first."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the new kata folder")),
	), s.createKata)

	s.mcp.AddTool(mcp.NewTool("get_kata_layout",
		mcp.WithDescription("Returns how a kata folder is laid out and run."),
	), s.getKataLayout)

	s.mcp.AddResource(
		mcp.NewResource(layoutURI, "Kata Layout",
			mcp.WithResourceDescription("How katac kata folders are laid out and run."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readKataLayoutResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listKatas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.Katas()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	infos := make([]KataInfo, 0, len(list))
	for _, k := range list {
		info := KataInfo{Name: k.Name, Path: k.Path}
		if meta, err := katas.Describe(k.Path); err == nil {
			info.Title, info.Description, info.Tags = meta.Title, meta.Description, meta.Tags
		}
		infos = append(infos, info)
	}
	return jsonResult(infos)
}

func (s *Server) currentDay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, n, err := days.CurrentPath(s.svc.DaysDir())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(DayInfo{Workspace: s.svc.Workspace(), Day: n, Name: days.Name(n), Path: path})
}

func (s *Server) listDayKatas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.svc.DayKatas()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) copyKatas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("names")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names := splitNames(raw)
	if len(names) == 0 {
		return mcp.NewToolResultError("names must list at least one kata"), nil
	}
	var buf bytes.Buffer
	if err := s.svc.WithOutput(&buf).Copy(ctx, names); err != nil {
		return mcp.NewToolResultError(buf.String() + err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) randomKatas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := req.RequireInt("count")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	if err := s.svc.WithOutput(&buf).Random(ctx, n); err != nil {
		return mcp.NewToolResultError(buf.String() + err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) createKata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	if err := s.svc.WithOutput(&buf).New(ctx, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create %s: %v", name, err)), nil
	}
	return mcp.NewToolResultText(strings.TrimSpace(buf.String())), nil
}

func (s *Server) getKataLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(KataLayoutContract), nil
}

func (s *Server) readKataLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      layoutURI,
			MIMEType: "text/markdown",
			Text:     KataLayoutContract,
		},
	}, nil
}

func splitNames(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}
