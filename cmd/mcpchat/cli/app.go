package cli

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/callbacks"
	"github.com/effective-security/mcpchat/chat"
	"github.com/effective-security/mcpchat/pkg/config"
	"github.com/effective-security/mcpchat/pkg/llmfactory"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/store"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/mcpchat/tools/mcpprovider"
	"github.com/effective-security/xlog"
)

// BuiltinProvider is the registry label of the built-in tools.
const BuiltinProvider = "builtin"

// app holds the resources shared by a command run.
type app struct {
	cfg      *config.Config
	model    llms.Model
	registry *tools.Registry
	store    store.MessageStore
	closers  []io.Closer
}

// loadConfig loads the configuration file and applies the command line overrides.
func loadConfig(f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	for _, s := range f.servers {
		if err := cfg.AddServer(s); err != nil {
			return nil, errors.WithMessagef(err, "--server %q", s)
		}
	}
	if f.model != "" {
		cfg.Chat.Model = f.model
	}
	if f.maxTurns >= 0 {
		cfg.Chat.MaxTurns = f.maxTurns
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRegistry registers the enabled MCP servers in configuration order,
// then the built-in tools. The returned closers disconnect the servers.
func newRegistry(cfg *config.Config, builtin bool) (*tools.Registry, []io.Closer, error) {
	registry := tools.NewRegistry()
	var closers []io.Closer

	for _, s := range cfg.EnabledServers() {
		p, err := mcpprovider.NewFromConfig(s)
		if err == nil {
			err = registry.Register(s.Name, p)
		}
		if err != nil {
			closeAll(closers)
			return nil, nil, err
		}
		closers = append(closers, p)
		logger.KV(xlog.DEBUG, "status", "server_registered", "name", s.Name, "transport", s.Transport)
	}

	if builtin {
		if err := registry.Register(BuiltinProvider, newBuiltinTools(nil)); err != nil {
			closeAll(closers)
			return nil, nil, err
		}
	}
	return registry, closers, nil
}

func newModel(cfg *config.Config) (llms.Model, error) {
	factory := llmfactory.New(&cfg.LLM)
	if cfg.Chat.Model != "" {
		return factory.ModelByName(cfg.Chat.Model)
	}
	return factory.DefaultModel()
}

func newApp(f *flags) (*app, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	model, err := newModel(cfg)
	if err != nil {
		return nil, err
	}
	var st store.MessageStore
	if cfg.Store != nil {
		st, err = store.New(cfg.Store)
		if err != nil {
			return nil, err
		}
	}
	registry, closers, err := newRegistry(cfg, f.builtin)
	if err != nil {
		return nil, err
	}
	logger.KV(xlog.INFO, "status", "started", "model", model.GetName(), "providers", registry.Len())

	return &app{
		cfg:      cfg,
		model:    model,
		registry: registry,
		store:    st,
		closers:  closers,
	}, nil
}

// newSession returns a conversation printing the tool events to out.
// A non-empty chatID resumes that chat from the store.
// With transcript, the transcript and stats of each query are printed to out.
func (a *app) newSession(ctx context.Context, out io.Writer, mode callbacks.Mode, chatID string, transcript bool) (*session, error) {
	var history []llms.Message
	if chatID != "" {
		if a.store == nil {
			return nil, errors.New("resuming a session requires a store in the configuration")
		}
		var err error
		history, err = a.store.Messages(ctx, chatID)
		if err != nil {
			return nil, err
		}
		logger.ContextKV(ctx, xlog.INFO, "status", "resumed", "chat_id", chatID, "messages", len(history))
	}

	cb := callbacks.NewFanout(
		callbacks.NewPrinter(out, mode),
		callbacks.NewPackageLogger(logger),
	)
	var pad *callbacks.Scratchpad
	if transcript {
		pad = callbacks.NewScratchpad(mode)
		cb.Add(pad)
	}
	c, err := chat.New(chat.NewClient(a.model, a.cfg.Chat.CallOptions()...), a.registry,
		chat.WithSystemTemplate(a.cfg.Chat.SystemPrompt, a.cfg.Chat.SystemVars),
		chat.WithMaxTurns(a.cfg.Chat.MaxTurns),
		chat.WithCallback(cb),
		chat.WithChatID(chatID),
		chat.WithHistory(history),
	)
	if err != nil {
		return nil, err
	}
	return &session{chat: c, store: a.store, pad: pad, log: out}, nil
}

// Close disconnects the MCP servers.
func (a *app) Close() {
	closeAll(a.closers)
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.KV(xlog.ERROR, "reason", "close", "err", err)
		}
	}
}
