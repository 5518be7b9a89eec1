package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "dispatcher")

// ToolNotFoundMessage is the error result of a call to a tool
// that no provider offers.
const ToolNotFoundMessage = "Could not find that tool"

// Dispatcher executes tool calls against a set of providers.
type Dispatcher struct {
	callback tools.Callback
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithCallback sets the callback for tool events.
func WithCallback(cb tools.Callback) Option {
	return func(d *Dispatcher) {
		d.callback = cb
	}
}

// New returns a Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve returns the first provider, in the given order, whose current
// catalog offers the tool. Providers are asked for their live catalog on
// every call; a provider that fails to list is skipped.
func (d *Dispatcher) Resolve(ctx context.Context, providers []tools.Entry, name string) (tools.Entry, bool) {
	return newSession(providers, false).resolve(ctx, name)
}

// Execute runs every call and returns one result per call, in the order of
// the calls. Calls run concurrently, except that calls to the same provider
// are serialized.
func (d *Dispatcher) Execute(ctx context.Context, providers []tools.Entry, calls []llms.ToolCall) []llms.ToolCallResponse {
	if len(calls) == 0 {
		return nil
	}

	s := newSession(providers, true)
	results := make([]llms.ToolCallResponse, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.execute(ctx, s, call)
		}()
	}
	wg.Wait()

	return results
}

func (d *Dispatcher) execute(ctx context.Context, s *session, call llms.ToolCall) llms.ToolCallResponse {
	name := call.Name()
	resp := llms.ToolCallResponse{
		ToolCallID: call.ID,
		Name:       name,
	}

	entry, ok := s.resolve(ctx, name)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_not_found",
			"tool", name,
			"tool_call_id", call.ID)
		if d.callback != nil {
			d.callback.OnToolNotFound(ctx, call)
		}
		resp.Error = ToolNotFoundMessage
		return resp
	}

	if d.callback != nil {
		d.callback.OnToolStart(ctx, entry.Label, call)
	}

	started := time.Now()
	texts, err := s.invoke(ctx, entry, call)
	metricskey.PerfToolCall.MeasureSince(started, name, entry.Label)

	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name, entry.Label)
		logger.ContextKV(ctx, xlog.ERROR,
			"reason", "call_tool",
			"tool", name,
			"provider", entry.Label,
			"tool_call_id", call.ID,
			"err", err.Error())
		if d.callback != nil {
			d.callback.OnToolError(ctx, entry.Label, call, err)
		}
		resp.Error = fmt.Sprintf("Error executing tool '%s': %s", name, err.Error())
		return resp
	}

	resp.Result = encodeTexts(texts)
	metricskey.StatsToolCallsSucceeded.IncrCounter(1, name, entry.Label)
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tool_called",
		"tool", name,
		"provider", entry.Label,
		"tool_call_id", call.ID,
		"result", slices.StringUpto(resp.Result, 64))
	if d.callback != nil {
		d.callback.OnToolEnd(ctx, entry.Label, call, resp)
	}
	return resp
}

// encodeTexts serializes the text items as a JSON array of strings.
func encodeTexts(texts []string) string {
	if texts == nil {
		texts = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// encoding a slice of strings does not fail
	_ = enc.Encode(texts)
	return strings.TrimSuffix(buf.String(), "\n")
}

// session holds the provider snapshot and the per-provider locks
// for one Execute call.
type session struct {
	providers []tools.Entry
	locks     map[string]*sync.Mutex
}

func newSession(providers []tools.Entry, serialize bool) *session {
	s := &session{providers: providers}
	if serialize {
		s.locks = make(map[string]*sync.Mutex, len(providers))
		for _, e := range providers {
			s.locks[e.Label] = new(sync.Mutex)
		}
	}
	return s
}

func (s *session) lock(label string) func() {
	l := s.locks[label]
	if l == nil {
		return func() {}
	}
	l.Lock()
	return l.Unlock
}

func (s *session) resolve(ctx context.Context, name string) (tools.Entry, bool) {
	if name == "" {
		return tools.Entry{}, false
	}
	for _, e := range s.providers {
		if s.offers(ctx, e, name) {
			return e, true
		}
	}
	return tools.Entry{}, false
}

func (s *session) offers(ctx context.Context, e tools.Entry, name string) bool {
	unlock := s.lock(e.Label)
	defer unlock()

	list, err := e.ListTools(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "list_tools",
			"provider", e.Label,
			"err", err.Error())
		return false
	}
	for _, d := range list {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (s *session) invoke(ctx context.Context, e tools.Entry, call llms.ToolCall) (texts []string, err error) {
	args, err := call.Args()
	if err != nil {
		return nil, err
	}

	unlock := s.lock(e.Label)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic: %v", r)
		}
	}()

	res, err := e.Provider.CallTool(ctx, call.Name(), args)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return []string{}, nil
	}
	if res.IsError {
		msg := strings.Join(res.Texts(), "\n")
		if msg == "" {
			msg = "tool reported an error"
		}
		return nil, errors.New(msg)
	}
	return res.Texts(), nil
}

var defaultDispatcher = New()

// Resolve returns the first provider whose current catalog offers the tool.
func Resolve(ctx context.Context, providers []tools.Entry, name string) (tools.Entry, bool) {
	return defaultDispatcher.Resolve(ctx, providers, name)
}

// Execute runs the calls without callbacks. See Dispatcher.Execute.
func Execute(ctx context.Context, providers []tools.Entry, calls []llms.ToolCall) []llms.ToolCallResponse {
	return defaultDispatcher.Execute(ctx, providers, calls)
}
