package chat

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/catalog"
	"github.com/effective-security/mcpchat/dispatcher"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "chat")

// ErrMaxTurnsExceeded is returned by Run when the model keeps calling tools
// past the configured number of turns.
var ErrMaxTurnsExceeded = errors.New("max turns exceeded")

type state int

const (
	stateAwaitingModel state = iota
	stateDispatchingTools
	stateDone
)

// Chat is a conversation with a model that can call tools.
// The history is kept across Run calls.
type Chat struct {
	client     ModelClient
	registry   *tools.Registry
	dispatcher *dispatcher.Dispatcher
	callback   Callback
	system     string
	maxTurns   int
	id         string

	lock    sync.Mutex
	history []llms.Message
}

// New returns a Chat with the model client and tool providers.
// The registry may be nil, or empty, for a chat without tools.
func New(client ModelClient, registry *tools.Registry, opts ...Option) (*Chat, error) {
	cfg := NewConfig(opts...)

	system := cfg.SystemInstruction
	if cfg.SystemPrompt.Template != "" {
		var err error
		system, err = cfg.SystemPrompt.Format()
		if err != nil {
			return nil, errors.WithMessage(err, "invalid system instruction")
		}
	}

	if cfg.MaxTurns < 0 {
		return nil, errors.Newf("invalid max turns: %d", cfg.MaxTurns)
	}

	var cb Callback = nopCallback{}
	if cfg.Callback != nil {
		cb = cfg.Callback
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}

	return &Chat{
		client:     client,
		registry:   registry,
		dispatcher: dispatcher.New(dispatcher.WithCallback(cb)),
		callback:   cb,
		system:     system,
		maxTurns:   cfg.MaxTurns,
		id:         values.StringsCoalesce(cfg.ChatID, uuid.NewString()),
		history:    slices.Clone(cfg.History),
	}, nil
}

// ID returns the conversation ID.
func (c *Chat) ID() string {
	return c.id
}

// SystemInstruction returns the system instruction sent with every call.
func (c *Chat) SystemInstruction() string {
	return c.system
}

// History returns a copy of the conversation history.
func (c *Chat) History() []llms.Message {
	c.lock.Lock()
	defer c.lock.Unlock()
	return slices.Clone(c.history)
}

// Reset clears the conversation history.
func (c *Chat) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.history = nil
}

// Run sends the query to the model and executes the tool calls it requests
// until it answers with text only, and returns that answer.
//
// Model failures come back as the answer text, not as an error. Run fails
// only when ctx is done or the max turns cap is reached. A turn cut short by
// ctx is not added to the history.
// Concurrent calls are serialized.
func (c *Chat) Run(ctx context.Context, query string) (answer string, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	ctx = ContextWithID(ctx, c.id)
	started := time.Now()
	name := c.client.Name()
	defer metricskey.PerfChatRun.MeasureSince(started, name)

	c.callback.OnChatStart(ctx, c.id, query)
	defer func() {
		c.callback.OnChatEnd(ctx, c.id, answer, err)
	}()

	c.history = append(c.history, llms.MessageFromTextParts(llms.RoleHuman, query))

	var (
		resp      *llms.ContentResponse
		providers []tools.Entry
		turn      int
	)

	st := stateAwaitingModel
	for {
		switch st {
		case stateAwaitingModel:
			if ctx.Err() != nil {
				return "", c.cancelled(ctx, turn)
			}
			if c.maxTurns > 0 && turn >= c.maxTurns {
				logger.ContextKV(ctx, xlog.WARNING,
					"reason", "max_turns",
					"chat_id", c.id,
					"turn", turn)
				return "", errors.Wrapf(ErrMaxTurnsExceeded, "after %d turns", turn)
			}
			turn++

			providers = c.registry.Providers()
			offered := catalog.ToModelTools(catalog.Aggregate(ctx, providers))

			resp = c.client.Chat(ctx, c.history, c.system, offered)
			if ctx.Err() != nil {
				return "", c.cancelled(ctx, turn)
			}
			if resp == nil {
				resp = llms.NewTextResponse(MsgNoResponse)
			}
			c.history = AddAssistantMessage(c.history, resp)
			metricskey.StatsChatTurns.IncrCounter(1, name)

			logger.ContextKV(ctx, xlog.DEBUG,
				"status", "model_turn",
				"chat_id", c.id,
				"turn", turn,
				"tools", len(offered),
				"tool_calls", len(resp.ToolCalls),
				"stop_reason", resp.StopReason)

			c.callback.OnModelResponse(ctx, c.id, turn, resp)

			if resp.HasToolCalls() {
				st = stateDispatchingTools
			} else {
				st = stateDone
			}

		case stateDispatchingTools:
			if resp.Content != "" {
				c.callback.OnInterimText(ctx, c.id, resp.Content)
			}
			results := c.dispatcher.Execute(ctx, providers, resp.ToolCalls)
			c.history = AddToolResults(c.history, results)
			st = stateAwaitingModel

		case stateDone:
			return TextFromResponse(resp), nil
		}
	}
}

func (c *Chat) cancelled(ctx context.Context, turn int) error {
	err := ctx.Err()
	logger.ContextKV(ctx, xlog.WARNING,
		"reason", "cancelled",
		"chat_id", c.id,
		"turn", turn,
		"err", err.Error())
	return errors.Wrapf(err, "chat cancelled after %d turns", turn)
}
