package mcp

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/typimports/pkg/check"
	"github.com/Sumatoshi-tech/typimports/pkg/config"
	"github.com/Sumatoshi-tech/typimports/pkg/pyast"
	"github.com/Sumatoshi-tech/typimports/pkg/typeonly"
)

// Tool name constants.
const (
	ToolNameCheck    = "typimports_check"
	ToolNameClassify = "typimports_classify"
	ToolNameParse    = "typimports_parse"
)

// Input size limits.
const (
	// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
	MaxCodeInputBytes = 1 << 20

	defaultFilename = "snippet.py"
)

// Classification statuses reported by the classify tool.
const (
	StatusTypeOnly = "type-only"
	StatusRuntime  = "runtime"
	StatusGuarded  = "guarded"
	StatusUnused   = "unused"
	StatusWildcard = "wildcard"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
	// ErrInvalidSentinel indicates the sentinel_name is not a Python identifier.
	ErrInvalidSentinel = errors.New("sentinel_name must be a Python identifier")
)

// Input types (auto-generate JSON schemas via struct tags).

// CheckInput is the input schema for the typimports_check tool.
type CheckInput struct {
	Code            string   `json:"code"                       jsonschema:"Python source code to check"`
	Filename        string   `json:"filename,omitempty"         jsonschema:"file name used in error messages (default: snippet.py)"`
	SentinelName    string   `json:"sentinel_name,omitempty"    jsonschema:"name that marks a type-checking guard (default: TYPE_CHECKING)"`
	SentinelModules []string `json:"sentinel_modules,omitempty" jsonschema:"modules the sentinel is imported from (default: typing)"`
	IgnoreNoQA      bool     `json:"ignore_noqa,omitempty"      jsonschema:"report imports even when their line carries a noqa comment"`
}

// ClassifyInput is the input schema for the typimports_classify tool.
type ClassifyInput struct {
	Code            string   `json:"code"                       jsonschema:"Python source code to classify"`
	SentinelName    string   `json:"sentinel_name,omitempty"    jsonschema:"name that marks a type-checking guard (default: TYPE_CHECKING)"`
	SentinelModules []string `json:"sentinel_modules,omitempty" jsonschema:"modules the sentinel is imported from (default: typing)"`
}

// ParseInput is the input schema for the typimports_parse tool.
type ParseInput struct {
	Code     string `json:"code"               jsonschema:"Python source code to parse"`
	Filename string `json:"filename,omitempty" jsonschema:"file name used in error messages (default: snippet.py)"`
}

// Output types.

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// CheckOutput lists the diagnostics for one snippet.
type CheckOutput struct {
	Diagnostics []typeonly.Diagnostic `json:"diagnostics"`
	Count       int                   `json:"count"`
}

// NameClass explains how one bound name was classified.
type NameClass struct {
	Name   string `json:"name"`
	Module string `json:"module,omitempty"`
	Line   int    `json:"line,omitempty"`
	Status string `json:"status"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validateCodeInput checks common code input constraints.
func validateCodeInput(code string) error {
	if strings.TrimSpace(code) == "" {
		return ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}

// checkerOptions overlays tool input on the server defaults.
func (s *Server) checkerOptions(name string, modules []string) (typeonly.Options, error) {
	opts := s.defaults

	if name != "" {
		if !config.IsIdentifier(name) {
			return opts, fmt.Errorf("%w: %q", ErrInvalidSentinel, name)
		}

		opts.SentinelName = name
	}

	if len(modules) > 0 {
		opts.SentinelModules = modules
	}

	return opts, nil
}

func filenameOr(name string) string {
	if name == "" {
		return defaultFilename
	}

	return name
}

func (s *Server) handleCheck(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input CheckInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	opts, err := s.checkerOptions(input.SentinelName, input.SentinelModules)
	if err != nil {
		return errorResult(err)
	}

	runner := check.NewRunner(check.Options{
		Checker: opts,
		Logger:  s.logger,
		NoQA:    !input.IgnoreNoQA,
	})

	diags, err := runner.CheckSource(ctx, filenameOr(input.Filename), []byte(input.Code))
	if err != nil {
		s.logger.DebugContext(ctx, "mcp check failed", slog.String("mcp.tool", ToolNameCheck), slog.Any("error", err))

		return errorResult(err)
	}

	if diags == nil {
		diags = []typeonly.Diagnostic{}
	}

	return jsonResult(CheckOutput{Diagnostics: diags, Count: len(diags)})
}

func (s *Server) handleClassify(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input ClassifyInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	opts, err := s.checkerOptions(input.SentinelName, input.SentinelModules)
	if err != nil {
		return errorResult(err)
	}

	tree, err := s.parser.Parse(ctx, defaultFilename, []byte(input.Code))
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(classify(typeonly.Classify(tree, opts)))
}

// classify flattens tables into one entry per bound name, ordered by line.
func classify(tables *typeonly.Tables) []NameClass {
	out := make([]NameClass, 0, len(tables.Imports)+len(tables.Guarded)+len(tables.StarImports))

	for bound, rec := range tables.Imports {
		status := StatusUnused

		switch {
		case tables.IsTypeOnly(bound):
			status = StatusTypeOnly
		case hasName(tables.Runtime, bound):
			status = StatusRuntime
		case hasName(tables.Guarded, bound):
			status = StatusGuarded
		}

		out = append(out, NameClass{Name: bound, Module: rec.Origin, Line: rec.Pos.Line, Status: status})
	}

	for bound := range tables.Guarded {
		if _, imported := tables.Imports[bound]; !imported {
			out = append(out, NameClass{Name: bound, Status: StatusGuarded})
		}
	}

	for _, star := range tables.StarImports {
		out = append(out, NameClass{Name: "*", Module: star.Module, Line: star.Pos.Line, Status: StatusWildcard})
	}

	slices.SortFunc(out, func(a, b NameClass) int {
		return cmp.Or(cmp.Compare(a.Line, b.Line), cmp.Compare(a.Name, b.Name))
	})

	return out
}

func hasName(set map[string]struct{}, name string) bool {
	_, ok := set[name]

	return ok
}

func (s *Server) handleParse(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input ParseInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	tree, err := s.parser.Parse(ctx, filenameOr(input.Filename), []byte(input.Code))
	if err != nil {
		return errorResult(err)
	}

	var buf strings.Builder

	err = pyast.Dump(&buf, tree)
	if err != nil {
		return errorResult(err)
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: buf.String()},
		},
	}, ToolOutput{Data: buf.String()}, nil
}
