package mcpprovider

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/xlog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "mcpprovider")

// Client identity sent on initialize.
const (
	DefaultClientName    = "mcpchat"
	DefaultClientVersion = "v1.0.0"
)

// Config describes an MCP server.
type Config struct {
	// Name labels the provider in the registry and in logs.
	Name string `json:"name" yaml:"name" toml:"name" validate:"required"`
	// Transport is the transport spec, see the package doc.
	Transport string `json:"transport" yaml:"transport" toml:"transport" validate:"required"`
	// Env is added to the environment of a stdio server.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty"`
	// Disabled servers are not connected.
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty" toml:"disabled,omitempty"`
}

// Provider is a tools.Provider backed by an MCP client session.
type Provider struct {
	name      string
	target    string
	client    *mcp.Client
	transport transportFunc

	lock    sync.Mutex
	session *mcp.ClientSession
}

var _ tools.Provider = (*Provider)(nil)

// Option configures the Provider.
type Option func(*options)

type options struct {
	impl *mcp.Implementation
}

// WithImplementation sets the client name and version sent on initialize.
func WithImplementation(name, version string) Option {
	return func(o *options) {
		o.impl = &mcp.Implementation{Name: name, Version: version}
	}
}

// New returns a Provider over the transport.
// A transport can be connected once, so a Provider created with New
// cannot reconnect after Close.
func New(name string, transport mcp.Transport, opts ...Option) *Provider {
	return newProvider(name, "custom", func(context.Context) (mcp.Transport, error) {
		return transport, nil
	}, opts...)
}

// NewFromConfig returns a Provider for the configured server.
// The spec is validated here, the server is connected on first use.
func NewFromConfig(cfg *Config, opts ...Option) (*Provider, error) {
	target, err := ParseSpec(cfg.Transport)
	if err != nil {
		return nil, errors.WithMessagef(err, "server %q", cfg.Name)
	}
	env := cfg.Env
	return newProvider(cfg.Name, target.String(), func(context.Context) (mcp.Transport, error) {
		return target.Transport(env)
	}, opts...), nil
}

func newProvider(name, target string, transport transportFunc, opts ...Option) *Provider {
	o := &options{
		impl: &mcp.Implementation{Name: DefaultClientName, Version: DefaultClientVersion},
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Provider{
		name:      name,
		target:    target,
		client:    mcp.NewClient(o.impl, nil),
		transport: transport,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// Connect connects the session, if not yet connected.
func (p *Provider) Connect(ctx context.Context) error {
	_, err := p.getSession(ctx)
	return err
}

func (p *Provider) getSession(ctx context.Context) (*mcp.ClientSession, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.session != nil {
		return p.session, nil
	}

	transport, err := p.transport(ctx)
	if err != nil {
		return nil, errors.WithMessagef(err, "server %q", p.name)
	}
	session, err := p.client.Connect(ctx, transport, nil)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"reason", "connect",
			"server", p.name,
			"target", p.target,
			"err", err.Error())
		return nil, errors.Wrapf(err, "failed to connect to server %q", p.name)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "connected",
		"server", p.name,
		"target", p.target)

	p.session = session
	return session, nil
}

// ListTools returns the tools offered by the server, following pagination.
func (p *Provider) ListTools(ctx context.Context) ([]tools.Descriptor, error) {
	session, err := p.getSession(ctx)
	if err != nil {
		return nil, err
	}

	var res []tools.Descriptor
	params := &mcp.ListToolsParams{}
	for {
		list, err := session.ListTools(ctx, params)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list tools of server %q", p.name)
		}
		for _, t := range list.Tools {
			if t == nil {
				continue
			}
			res = append(res, toDescriptor(t))
		}
		if list.NextCursor == "" {
			break
		}
		params = &mcp.ListToolsParams{Cursor: list.NextCursor}
	}
	return res, nil
}

// CallTool invokes the tool on the server.
func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) (*tools.Result, error) {
	session, err := p.getSession(ctx)
	if err != nil {
		return nil, err
	}

	if args == nil {
		args = map[string]any{}
	}
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call tool %q of server %q", name, p.name)
	}
	return toResult(res), nil
}

// Close closes the session, if connected.
func (p *Provider) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	return errors.WithStack(err)
}

func toDescriptor(t *mcp.Tool) tools.Descriptor {
	return tools.Descriptor{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schemaMap(t.InputSchema),
	}
}

func schemaMap(v any) map[string]any {
	switch m := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return m
	}
	js, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err = json.Unmarshal(js, &m); err != nil {
		return nil
	}
	return m
}

func toResult(res *mcp.CallToolResult) *tools.Result {
	if res == nil {
		return &tools.Result{}
	}
	out := &tools.Result{
		Content: make([]tools.Content, 0, len(res.Content)),
		IsError: res.IsError,
	}
	for _, c := range res.Content {
		switch typ := c.(type) {
		case *mcp.TextContent:
			out.Content = append(out.Content, tools.TextContent(typ.Text))
		case *mcp.ImageContent:
			out.Content = append(out.Content, tools.Content{Type: "image"})
		case *mcp.AudioContent:
			out.Content = append(out.Content, tools.Content{Type: "audio"})
		case *mcp.ResourceLink:
			out.Content = append(out.Content, tools.Content{Type: "resource_link"})
		case *mcp.EmbeddedResource:
			out.Content = append(out.Content, tools.Content{Type: "resource"})
		default:
			out.Content = append(out.Content, tools.Content{Type: "unknown"})
		}
	}
	return out
}
