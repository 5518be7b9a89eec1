package mcpprovider

import (
	"context"
	"net/url"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Transport kinds.
const (
	KindStdio      = "stdio"
	KindSSE        = "sse"
	KindStreamable = "streamable"
)

const (
	stdioSchemePrefix = "stdio://"
	sseSchemePrefix   = "sse://"
)

// Target is a parsed transport spec.
type Target struct {
	// Kind is one of KindStdio, KindSSE or KindStreamable.
	Kind string
	// Command and Args are set for KindStdio.
	Command string
	Args    []string
	// Endpoint is the URL for the HTTP kinds.
	Endpoint string
}

// ParseSpec parses a transport spec.
func ParseSpec(spec string) (*Target, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("transport spec is empty")
	}

	lowered := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(lowered, stdioSchemePrefix):
		return parseCommand(spec[len(stdioSchemePrefix):])
	case strings.HasPrefix(lowered, sseSchemePrefix):
		endpoint, err := normalizeHTTPURL(spec[len(sseSchemePrefix):], true)
		if err != nil {
			return nil, errors.WithMessage(err, "invalid SSE endpoint")
		}
		return &Target{Kind: KindSSE, Endpoint: endpoint}, nil
	}

	if t, matched, err := parseHTTPFamily(spec); err != nil {
		return nil, err
	} else if matched {
		return t, nil
	}

	if strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://") {
		endpoint, err := normalizeHTTPURL(spec, false)
		if err != nil {
			return nil, errors.WithMessage(err, "invalid HTTP endpoint")
		}
		return &Target{Kind: KindStreamable, Endpoint: endpoint}, nil
	}

	return parseCommand(spec)
}

func (t *Target) String() string {
	if t.Kind == KindStdio {
		return stdioSchemePrefix + strings.Join(append([]string{t.Command}, t.Args...), " ")
	}
	return t.Endpoint
}

// Transport returns a new MCP transport for the target.
// The env entries are added to the environment of a stdio command.
func (t *Target) Transport(env map[string]string) (mcp.Transport, error) {
	switch t.Kind {
	case KindStdio:
		// the process belongs to the session, not to the context of the first call
		// #nosec G204 -- the command comes from the operator configuration
		cmd := exec.Command(t.Command, t.Args...)
		if len(env) > 0 {
			cmd.Env = append(os.Environ(), envList(env)...)
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	case KindSSE:
		return &mcp.SSEClientTransport{Endpoint: t.Endpoint}, nil
	case KindStreamable:
		return &mcp.StreamableClientTransport{Endpoint: t.Endpoint}, nil
	default:
		return nil, errors.Newf("unsupported transport kind: %q", t.Kind)
	}
}

func envList(env map[string]string) []string {
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	slices.Sort(list)
	return list
}

func parseCommand(cmdSpec string) (*Target, error) {
	parts := strings.Fields(cmdSpec)
	if len(parts) == 0 {
		return nil, errors.New("stdio command is empty")
	}
	return &Target{
		Kind:    KindStdio,
		Command: parts[0],
		Args:    parts[1:],
	}, nil
}

func parseHTTPFamily(spec string) (*Target, bool, error) {
	u, err := url.Parse(spec)
	if err != nil || u.Scheme == "" {
		return nil, false, nil
	}
	base, hint, ok := strings.Cut(strings.ToLower(u.Scheme), "+")
	if !ok || (base != "http" && base != "https") {
		return nil, false, nil
	}

	var kind string
	switch hint {
	case "sse":
		kind = KindSSE
	case "stream", "streamable", "http":
		kind = KindStreamable
	default:
		return nil, true, errors.Newf("unsupported HTTP transport hint %q", hint)
	}

	normalized := *u
	normalized.Scheme = base
	endpoint, err := normalizeHTTPURL(normalized.String(), false)
	if err != nil {
		return nil, true, errors.WithMessagef(err, "invalid %s endpoint", kind)
	}
	return &Target{Kind: kind, Endpoint: endpoint}, true, nil
}

func normalizeHTTPURL(raw string, guessScheme bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("endpoint is empty")
	}
	if guessScheme && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.WithStack(err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", errors.Newf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("missing host")
	}
	u.Scheme = scheme
	return u.String(), nil
}

type transportFunc func(ctx context.Context) (mcp.Transport, error)
