package mcpprovider

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	t.Parallel()

	tcases := []struct {
		spec   string
		exp    *Target
		experr string
	}{
		{spec: "stdio://python server.py --port 1", exp: &Target{Kind: KindStdio, Command: "python", Args: []string{"server.py", "--port", "1"}}},
		{spec: "  uvx mcp-server-time ", exp: &Target{Kind: KindStdio, Command: "uvx", Args: []string{"mcp-server-time"}}},
		{spec: "STDIO://calc", exp: &Target{Kind: KindStdio, Command: "calc", Args: []string{}}},
		{spec: "sse://localhost:8080/sse", exp: &Target{Kind: KindSSE, Endpoint: "https://localhost:8080/sse"}},
		{spec: "sse://http://localhost:8080/sse", exp: &Target{Kind: KindSSE, Endpoint: "http://localhost:8080/sse"}},
		{spec: "http+sse://localhost:8080/sse", exp: &Target{Kind: KindSSE, Endpoint: "http://localhost:8080/sse"}},
		{spec: "https+stream://api.example.com/mcp", exp: &Target{Kind: KindStreamable, Endpoint: "https://api.example.com/mcp"}},
		{spec: "http+http://localhost/mcp", exp: &Target{Kind: KindStreamable, Endpoint: "http://localhost/mcp"}},
		{spec: "HTTP://localhost:3000/mcp", exp: &Target{Kind: KindStreamable, Endpoint: "http://localhost:3000/mcp"}},
		{spec: "", experr: "transport spec is empty"},
		{spec: "stdio://  ", experr: "stdio command is empty"},
		{spec: "sse://ftp://host", experr: "invalid SSE endpoint: unsupported scheme \"ftp\""},
		{spec: "http+ws://localhost", experr: "unsupported HTTP transport hint \"ws\""},
		{spec: "http://", experr: "invalid HTTP endpoint: missing host"},
	}

	for _, tc := range tcases {
		t.Run(tc.spec, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSpec(tc.spec)
			if tc.experr != "" {
				require.Error(t, err)
				assert.Equal(t, tc.experr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, got)
		})
	}
}

func TestTarget_Transport(t *testing.T) {
	t.Parallel()

	stdio := &Target{Kind: KindStdio, Command: "calc", Args: []string{"--verbose"}}
	assert.Equal(t, "stdio://calc --verbose", stdio.String())

	tr, err := stdio.Transport(map[string]string{"B": "2", "A": "1"})
	require.NoError(t, err)
	ct, ok := tr.(*mcp.CommandTransport)
	require.True(t, ok)
	assert.Equal(t, []string{"calc", "--verbose"}, ct.Command.Args)
	n := len(ct.Command.Env)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, []string{"A=1", "B=2"}, ct.Command.Env[n-2:])

	tr, err = stdio.Transport(nil)
	require.NoError(t, err)
	assert.Nil(t, tr.(*mcp.CommandTransport).Command.Env)

	sse := &Target{Kind: KindSSE, Endpoint: "http://localhost/sse"}
	assert.Equal(t, "http://localhost/sse", sse.String())
	tr, err = sse.Transport(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/sse", tr.(*mcp.SSEClientTransport).Endpoint)

	tr, err = (&Target{Kind: KindStreamable, Endpoint: "http://localhost/mcp"}).Transport(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/mcp", tr.(*mcp.StreamableClientTransport).Endpoint)

	_, err = (&Target{Kind: "ws"}).Transport(nil)
	assert.EqualError(t, err, `unsupported transport kind: "ws"`)
}

func TestToResult(t *testing.T) {
	t.Parallel()

	res := toResult(nil)
	require.NotNil(t, res)
	assert.Empty(t, res.Texts())

	res = toResult(&mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "a"},
			&mcp.ImageContent{MIMEType: "image/png", Data: []byte{1}},
			&mcp.TextContent{Text: "b"},
		},
		IsError: true,
	})
	assert.True(t, res.IsError)
	assert.Equal(t, []string{"a", "b"}, res.Texts())
	require.Len(t, res.Content, 3)
	assert.Equal(t, "image", res.Content[1].Type)
}

func TestSchemaMap(t *testing.T) {
	t.Parallel()

	assert.Nil(t, schemaMap(nil))
	m := map[string]any{"type": "object"}
	assert.Equal(t, m, schemaMap(m))

	type schema struct {
		Type string `json:"type"`
	}
	assert.Equal(t, map[string]any{"type": "object"}, schemaMap(schema{Type: "object"}))
	assert.Nil(t, schemaMap("not an object"))
}
