package mcp_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Sumatoshi-tech/typimports/pkg/mcp"
)

func connect(t *testing.T, deps mcp.ServerDeps) *mcpsdk.ClientSession {
	t.Helper()

	srv := mcp.NewServer(deps)
	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func call(t *testing.T, session *mcpsdk.ClientSession, tool string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: tool, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	return result
}

func text(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	content, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return content.Text
}

func TestListTools(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	assert.Equal(t, []string{"typimports_check", "typimports_classify", "typimports_parse"}, srv.ListToolNames())

	session := connect(t, mcp.ServerDeps{})

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 3)

	for _, tool := range tools.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
}

func TestCheckTool(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.ServerDeps{})

	result := call(t, session, mcp.ToolNameCheck, map[string]any{
		"code": "from pathlib import Path\nimport os\n\ndef f(p: Path) -> None:\n    os.getcwd()\n",
	})
	require.False(t, result.IsError, text(t, result))

	var out mcp.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Path", out.Diagnostics[0].Import)
	assert.Equal(t, "pathlib", out.Diagnostics[0].Module)
	assert.Equal(t, 1, out.Diagnostics[0].Line)
}

func TestCheckToolOptions(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.ServerDeps{})
	src := "from compat import TYPING\n\nif TYPING:\n    from m import A\n\nx: A\nfrom m import B  # noqa\ny: B\n"

	tests := []struct {
		name  string
		args  map[string]any
		count int
	}{
		{name: "defaults", args: map[string]any{}, count: 1},
		{name: "custom sentinel", args: map[string]any{"sentinel_name": "TYPING", "sentinel_modules": []string{"compat"}}, count: 0},
		{name: "ignore noqa", args: map[string]any{"ignore_noqa": true}, count: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := map[string]any{"code": src}
			for key, value := range tt.args {
				args[key] = value
			}

			result := call(t, session, mcp.ToolNameCheck, args)
			require.False(t, result.IsError, text(t, result))

			var out mcp.CheckOutput
			require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))
			assert.Equal(t, tt.count, out.Count)
		})
	}
}

func TestCheckToolErrors(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.ServerDeps{})

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "empty code", args: map[string]any{"code": "  \n"}, want: "must not be empty"},
		{name: "too large", args: map[string]any{"code": strings.Repeat("#", mcp.MaxCodeInputBytes+1)}, want: "exceeds maximum size"},
		{name: "bad sentinel", args: map[string]any{"code": "import os\n", "sentinel_name": "1bad"}, want: "Python identifier"},
		{name: "syntax error", args: map[string]any{"code": "def f(:\n", "filename": "broken.py"}, want: "broken.py:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := call(t, session, mcp.ToolNameCheck, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, text(t, result), tt.want)
		})
	}
}

func TestClassifyTool(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.ServerDeps{})

	src := "from typing import TYPE_CHECKING\nfrom m import A, B, C\nfrom star import *\n\n" +
		"if TYPE_CHECKING:\n    from g import G\n\nx: A = B()\n"

	result := call(t, session, mcp.ToolNameClassify, map[string]any{"code": src})
	require.False(t, result.IsError, text(t, result))

	var out []mcp.NameClass
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &out))

	assert.Equal(t, []mcp.NameClass{
		{Name: "G", Status: mcp.StatusGuarded},
		{Name: "A", Module: "m", Line: 2, Status: mcp.StatusTypeOnly},
		{Name: "B", Module: "m", Line: 2, Status: mcp.StatusRuntime},
		{Name: "C", Module: "m", Line: 2, Status: mcp.StatusUnused},
		{Name: "*", Module: "star", Line: 3, Status: mcp.StatusWildcard},
	}, out)
}

func TestParseTool(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.ServerDeps{})

	result := call(t, session, mcp.ToolNameParse, map[string]any{"code": "from a import b\n"})
	require.False(t, result.IsError, text(t, result))

	dump := text(t, result)
	assert.True(t, strings.HasPrefix(dump, "Module"))
	assert.Contains(t, dump, "ImportFrom a b @1:0")
}

func TestTracingAddsTraceID(t *testing.T) {
	t.Parallel()

	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	session := connect(t, mcp.ServerDeps{Tracer: provider.Tracer("test")})

	result := call(t, session, mcp.ToolNameParse, map[string]any{"code": "import os\n"})
	require.Len(t, result.Content, 2)

	traceContent, ok := result.Content[1].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(traceContent.Text, "trace_id="))
}
