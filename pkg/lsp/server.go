// Package lsp provides a Language Server Protocol (LSP) server that publishes
// type-only import diagnostics for open Python documents.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/typimports/pkg/check"
	"github.com/Sumatoshi-tech/typimports/pkg/observability"
	"github.com/Sumatoshi-tech/typimports/pkg/pyparse"
	"github.com/Sumatoshi-tech/typimports/pkg/typeonly"
)

const (
	serverName = "typimports"

	methodPublishDiagnostics = "textDocument/publishDiagnostics"

	opDiagnose = "lsp.diagnose"
	opHover    = "lsp.hover"
)

// ServerDeps holds optional dependencies for the server.
type ServerDeps struct {
	Runner  *check.Runner
	Logger  *slog.Logger
	Metrics *observability.REDMetrics
	Tracer  trace.Tracer
	Version string
}

// Server implements the typimports LSP server.
type Server struct {
	store   *DocumentStore
	runner  *check.Runner
	logger  *slog.Logger
	metrics *observability.REDMetrics
	tracer  trace.Tracer
	version string
	ctx     context.Context //nolint:containedctx // glsp handlers carry no context.
	handler protocol.Handler
}

// NewServer creates a new LSP server with default handlers.
func NewServer(deps ServerDeps) *Server {
	srv := &Server{
		store:   NewDocumentStore(),
		runner:  deps.Runner,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
		version: deps.Version,
		ctx:     context.Background(),
	}

	if srv.runner == nil {
		srv.runner = check.NewRunner(check.Options{Checker: typeonly.DefaultOptions(), NoQA: true})
	}

	if srv.logger == nil {
		srv.logger = slog.Default()
	}

	if srv.tracer == nil {
		srv.tracer = nooptrace.NewTracerProvider().Tracer(serverName)
	}

	if srv.version == "" {
		srv.version = typeonly.CheckerVersion
	}

	srv.handler = protocol.Handler{
		Initialize:            srv.initialize,
		Initialized:           srv.initialized,
		Shutdown:              srv.shutdown,
		SetTrace:              srv.setTrace,
		TextDocumentDidOpen:   srv.didOpen,
		TextDocumentDidChange: srv.didChange,
		TextDocumentDidSave:   srv.didSave,
		TextDocumentDidClose:  srv.didClose,
		TextDocumentHover:     srv.hover,
	}

	return srv
}

// Run serves LSP on stdio until the client disconnects.
func (srv *Server) Run(ctx context.Context) error {
	srv.ctx = ctx

	lspServer := server.NewServer(&srv.handler, serverName, false)

	err := lspServer.RunStdio()
	if err != nil {
		return fmt.Errorf("lsp server: %w", err)
	}

	return nil
}

func (srv *Server) initialize(_ *glsp.Context, _ *protocol.InitializeParams) (any, error) {
	capabilities := srv.handler.CreateServerCapabilities()

	if syncOptions, ok := capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions); ok {
		full := protocol.TextDocumentSyncKindFull
		syncOptions.Change = &full
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &srv.version,
		},
	}, nil
}

func (srv *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI

	srv.store.Set(uri, params.TextDocument.Text)
	srv.publishDiagnostics(ctx, uri)

	return nil
}

func (srv *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}

	uri := params.TextDocument.URI

	srv.store.Apply(uri, params.ContentChanges)
	srv.publishDiagnostics(ctx, uri)

	return nil
}

func (srv *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI

	if params.Text != nil {
		srv.store.Set(uri, *params.Text)
	}

	if _, ok := srv.store.Get(uri); ok {
		srv.publishDiagnostics(ctx, uri)
	}

	return nil
}

func (srv *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	srv.store.Delete(uri)

	ctx.Notify(methodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})

	return nil
}

func (srv *Server) hover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI
	pos := params.Position

	text, ok := srv.store.Get(uri)
	if !ok {
		return nil, nil //nolint:nilnil // LSP protocol expects nil hover when no document found.
	}

	diags, err := srv.check(opHover, uri, text)
	if err != nil {
		return nil, nil //nolint:nilnil,nilerr // broken documents have no hover.
	}

	for _, diag := range diags {
		rng := diagnosticRange(text, diag)
		if pos.Line != rng.Start.Line || pos.Character < rng.Start.Character || pos.Character > rng.End.Character {
			continue
		}

		return &protocol.Hover{
			Contents: protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: hoverText(diag),
			},
			Range: &rng,
		}, nil
	}

	return nil, nil //nolint:nilnil // LSP protocol expects nil hover when nothing is flagged.
}

func hoverText(diag typeonly.Diagnostic) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "**%s** `%s` is only used in type annotations.\n\n", diag.Code(), diag.Import)
	buf.WriteString("Move it under `if TYPE_CHECKING:` to avoid the runtime import cost:\n\n")
	buf.WriteString("```python\nfrom typing import TYPE_CHECKING\n\nif TYPE_CHECKING:\n")

	if diag.Module != "" {
		fmt.Fprintf(&buf, "    from %s import %s\n", diag.Module, diag.Import)
	} else {
		fmt.Fprintf(&buf, "    import %s\n", diag.Import)
	}

	buf.WriteString("```")

	return buf.String()
}

// Diagnostics returns the LSP diagnostics for a stored document. Documents
// with syntax errors yield none; the editor's own parser reports those.
func (srv *Server) Diagnostics(uri string) []protocol.Diagnostic {
	text, ok := srv.store.Get(uri)
	if !ok {
		return []protocol.Diagnostic{}
	}

	diags, err := srv.check(opDiagnose, uri, text)
	if err != nil {
		if !errors.Is(err, pyparse.ErrSyntax) {
			srv.logger.WarnContext(srv.ctx, "lsp check failed", slog.String("lsp.uri", uri), slog.Any("error", err))
		}

		return []protocol.Diagnostic{}
	}

	out := make([]protocol.Diagnostic, 0, len(diags))
	severity := protocol.DiagnosticSeverityWarning
	source := serverName

	for _, diag := range diags {
		out = append(out, protocol.Diagnostic{
			Range:    diagnosticRange(text, diag),
			Severity: &severity,
			Code:     &protocol.IntegerOrString{Value: diag.Code()},
			Source:   &source,
			Message:  strings.TrimPrefix(diag.Message, diag.Code()+" "),
		})
	}

	return out
}

func (srv *Server) check(op, uri, text string) ([]typeonly.Diagnostic, error) {
	start := time.Now()
	done := srv.metrics.TrackInflight(srv.ctx, op)

	ctx, span := srv.tracer.Start(srv.ctx, op, trace.WithAttributes(attribute.String("lsp.uri", uri)))

	diags, err := srv.runner.CheckSource(ctx, uri, []byte(text))

	span.End()
	done()

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError
	}

	srv.metrics.RecordRequest(srv.ctx, op, status, time.Since(start))

	return diags, err //nolint:wrapcheck // callers only classify the error.
}

// diagnosticRange spans from the import statement start to the end of its line.
func diagnosticRange(text string, diag typeonly.Diagnostic) protocol.Range {
	line := diag.Line - 1
	lineText := lineAt(text, line)
	column := min(diag.Column, len(lineText))

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(utf16Len(lineText[:column]))},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(utf16Len(lineText))},
	}
}

func (srv *Server) publishDiagnostics(ctx *glsp.Context, uri string) {
	ctx.Notify(methodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: srv.Diagnostics(uri),
	})
}
