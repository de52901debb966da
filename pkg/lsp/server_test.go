package lsp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	testURI = "file:///project/app.py"
	flagged = "from pathlib import Path\n\ndef f(p: Path) -> None:\n    pass\n"
	clean   = "from pathlib import Path\n\nprint(Path('.'))\n"
)

type notifications struct {
	mu    sync.Mutex
	items []*protocol.PublishDiagnosticsParams
}

func (n *notifications) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method != methodPublishDiagnostics {
				return
			}

			n.mu.Lock()
			defer n.mu.Unlock()

			n.items = append(n.items, params.(*protocol.PublishDiagnosticsParams)) //nolint:forcetypeassert // test helper
		},
	}
}

func (n *notifications) last(t *testing.T) *protocol.PublishDiagnosticsParams {
	t.Helper()

	n.mu.Lock()
	defer n.mu.Unlock()

	require.NotEmpty(t, n.items)

	return n.items[len(n.items)-1]
}

func open(t *testing.T, srv *Server, ctx *glsp.Context, text string) {
	t.Helper()

	require.NoError(t, srv.didOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: testURI, LanguageID: "python", Version: 1, Text: text},
	}))
}

func TestDocumentStore(t *testing.T) {
	t.Parallel()

	store := NewDocumentStore()

	_, ok := store.Get(testURI)
	assert.False(t, ok)

	store.Set(testURI, "a")
	store.Set(testURI, "b")

	got, ok := store.Get(testURI)
	require.True(t, ok)
	assert.Equal(t, "b", got)

	store.Delete(testURI)

	_, ok = store.Get(testURI)
	assert.False(t, ok)
}

func TestDocumentStoreApply(t *testing.T) {
	t.Parallel()

	rng := func(sl, sc, el, ec uint32) *protocol.Range {
		return &protocol.Range{
			Start: protocol.Position{Line: sl, Character: sc},
			End:   protocol.Position{Line: el, Character: ec},
		}
	}

	tests := []struct {
		name    string
		initial string
		changes []any
		want    string
	}{
		{
			name:    "whole document",
			initial: "old",
			changes: []any{protocol.TextDocumentContentChangeEventWhole{Text: "new"}},
			want:    "new",
		},
		{
			name:    "insert in second line",
			initial: "import os\nx = 1\n",
			changes: []any{protocol.TextDocumentContentChangeEvent{Range: rng(1, 4, 1, 5), Text: "42"}},
			want:    "import os\nx = 42\n",
		},
		{
			name:    "utf16 columns",
			initial: "s = 'é😀x'\n",
			changes: []any{protocol.TextDocumentContentChangeEvent{Range: rng(0, 8, 0, 9), Text: "y"}},
			want:    "s = 'é😀y'\n",
		},
		{
			name:    "range past end clamps",
			initial: "ab",
			changes: []any{protocol.TextDocumentContentChangeEvent{Range: rng(5, 0, 9, 0), Text: "c"}},
			want:    "abc",
		},
		{
			name:    "sequential edits",
			initial: "a\n",
			changes: []any{
				protocol.TextDocumentContentChangeEvent{Range: rng(0, 1, 0, 1), Text: "b"},
				protocol.TextDocumentContentChangeEvent{Range: rng(0, 2, 0, 2), Text: "c"},
			},
			want: "abc\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := NewDocumentStore()
			store.Set(testURI, tt.initial)

			assert.Equal(t, tt.want, store.Apply(testURI, tt.changes))

			got, _ := store.Get(testURI)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublishOnOpen(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})
	notes := &notifications{}

	open(t, srv, notes.context(), flagged)

	published := notes.last(t)
	assert.Equal(t, testURI, published.URI)
	require.Len(t, published.Diagnostics, 1)

	diag := published.Diagnostics[0]
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: 0, Character: 24},
	}, diag.Range)
	require.NotNil(t, diag.Severity)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *diag.Severity)
	require.NotNil(t, diag.Code)
	assert.Equal(t, "TYP001", diag.Code.Value)
	require.NotNil(t, diag.Source)
	assert.Equal(t, "typimports", *diag.Source)
	assert.Equal(t,
		"Import 'Path' from 'pathlib' is only used for type annotations. Consider moving it into 'if TYPE_CHECKING:' block",
		diag.Message)
}

func TestChangeSaveAndClose(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})
	notes := &notifications{}
	ctx := notes.context()

	open(t, srv, ctx, flagged)
	require.Len(t, notes.last(t).Diagnostics, 1)

	require.NoError(t, srv.didChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI}},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: clean}},
	}))
	assert.Empty(t, notes.last(t).Diagnostics)

	saved := flagged
	require.NoError(t, srv.didSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Text:         &saved,
	}))
	assert.Len(t, notes.last(t).Diagnostics, 1)

	require.NoError(t, srv.didClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	}))
	assert.Empty(t, notes.last(t).Diagnostics)

	_, ok := srv.store.Get(testURI)
	assert.False(t, ok)
}

func TestSyntaxErrorPublishesNothing(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})
	notes := &notifications{}

	open(t, srv, notes.context(), "from m import A\ndef f(:\n")

	published := notes.last(t)
	assert.NotNil(t, published.Diagnostics)
	assert.Empty(t, published.Diagnostics)
}

func TestNoQASuppressesInEditor(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})
	notes := &notifications{}

	open(t, srv, notes.context(), "from m import A  # noqa: TYP001\n\nx: A\n")
	assert.Empty(t, notes.last(t).Diagnostics)
}

func TestHover(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})
	open(t, srv, (&notifications{}).context(), flagged)

	hover := func(line, character uint32) *protocol.Hover {
		result, err := srv.hover(nil, &protocol.HoverParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
				Position:     protocol.Position{Line: line, Character: character},
			},
		})
		require.NoError(t, err)

		return result
	}

	result := hover(0, 21)
	require.NotNil(t, result)

	content, ok := result.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	assert.Contains(t, content.Value, "TYP001")
	assert.Contains(t, content.Value, "    from pathlib import Path\n")

	assert.Nil(t, hover(2, 10))
}

func TestHoverUnknownDocument(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, err := srv.hover(nil, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///missing.py"},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestInitializeAdvertisesFullSync(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{Version: "1.2.3"})

	result, err := srv.initialize(nil, &protocol.InitializeParams{})
	require.NoError(t, err)

	init, ok := result.(protocol.InitializeResult)
	require.True(t, ok)
	require.NotNil(t, init.ServerInfo)
	assert.Equal(t, "typimports", init.ServerInfo.Name)
	assert.Equal(t, "1.2.3", *init.ServerInfo.Version)

	syncOptions, ok := init.Capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions)
	require.True(t, ok)
	require.NotNil(t, syncOptions.Change)
	assert.Equal(t, protocol.TextDocumentSyncKindFull, *syncOptions.Change)
	assert.NotNil(t, init.Capabilities.HoverProvider)
}

func TestDiagnosticRangeNonASCII(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})
	notes := &notifications{}

	open(t, srv, notes.context(), "s = 'é'; from m import A\nx: A\n")

	diags := notes.last(t).Diagnostics
	require.Len(t, diags, 1)
	assert.Equal(t, uint32(9), diags[0].Range.Start.Character)
	assert.Equal(t, uint32(24), diags[0].Range.End.Character)
}
