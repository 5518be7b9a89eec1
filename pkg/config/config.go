package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llmfactory"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/store"
	"github.com/effective-security/mcpchat/tools/mcpprovider"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// ErrInvalid is returned when the configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

const (
	// DefaultProvider is the provider used when none is configured
	DefaultProvider = "GOOGLEAI"
	// DefaultModel is the model used when none is configured
	DefaultModel = "gemini-2.5-flash"
)

// Config is the application configuration
type Config struct {
	// LLM specifies the model providers
	LLM llmfactory.Config `json:"llm" yaml:"llm" toml:"llm"`
	// MCPServers specifies the MCP servers to connect to, in priority order
	MCPServers []*mcpprovider.Config `json:"mcp_servers,omitempty" yaml:"mcp_servers,omitempty" toml:"mcp_servers,omitempty" validate:"dive"`
	// Chat specifies the conversation settings
	Chat ChatConfig `json:"chat" yaml:"chat" toml:"chat"`
	// Store specifies where the chats are kept, they are not kept if nil
	Store *store.Config `json:"store,omitempty" yaml:"store,omitempty" toml:"store,omitempty" validate:"omitempty"`
}

// ChatConfig specifies the conversation settings
type ChatConfig struct {
	// Model is the preferred model name, the default provider's model if empty
	Model string `json:"model,omitempty" yaml:"model,omitempty" toml:"model,omitempty"`
	// SystemPrompt is the system instruction, it can be a Go template
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty" toml:"system_prompt,omitempty"`
	// SystemVars are the values for the SystemPrompt template
	SystemVars map[string]any `json:"system_vars,omitempty" yaml:"system_vars,omitempty" toml:"system_vars,omitempty"`
	// MaxTurns caps the model turns per query, 0 for unbounded
	MaxTurns int `json:"max_turns,omitempty" yaml:"max_turns,omitempty" toml:"max_turns,omitempty" validate:"gte=0"`

	// MaxTokens limits a model turn, the provider limit if 0
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty" validate:"gte=0"`
	// Temperature and TopP tune the sampling, the model defaults if 0
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty" validate:"gte=0,lte=2"`
	TopP        float64 `json:"top_p,omitempty" yaml:"top_p,omitempty" toml:"top_p,omitempty" validate:"gte=0,lte=1"`
	// StopWords end the generation
	StopWords []string `json:"stop_words,omitempty" yaml:"stop_words,omitempty" toml:"stop_words,omitempty"`
	// ToolChoice is none, auto or any
	ToolChoice string `json:"tool_choice,omitempty" yaml:"tool_choice,omitempty" toml:"tool_choice,omitempty" validate:"omitempty,oneof=none auto any"`
}

// CallOptions returns the model call options for the settings.
func (c *ChatConfig) CallOptions() []llms.CallOption {
	var opts []llms.CallOption
	if c.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.Temperature))
	}
	if c.TopP > 0 {
		opts = append(opts, llms.WithTopP(c.TopP))
	}
	if len(c.StopWords) > 0 {
		opts = append(opts, llms.WithStopWords(c.StopWords...))
	}
	if c.ToolChoice != "" {
		// validated by oneof
		choice, _ := llms.ParseFunctionCallBehavior(c.ToolChoice)
		opts = append(opts, llms.WithToolChoice(choice))
	}
	return opts
}

// Load returns the configuration from the file.
// An empty file name returns the defaults.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		var err error
		if strings.EqualFold(filepath.Ext(file), ".toml") {
			err = loadTOML(file, cfg)
		} else {
			err = configloader.UnmarshalAndExpand(file, cfg)
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to load config %q", file)
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadTOML(file string, cfg *Config) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = toml.Decode(os.ExpandEnv(string(b)), cfg)
	return errors.WithStack(err)
}

// SetDefaults adds the default provider when none is configured.
func (c *Config) SetDefaults() {
	if len(c.LLM.Providers) == 0 {
		c.LLM.Providers = []*llmfactory.ProviderConfig{
			{
				Name:         DefaultProvider,
				DefaultModel: DefaultModel,
				OpenAI: llmfactory.OpenAIConfig{
					APIType: DefaultProvider,
				},
			},
		}
	}
}

// Validate checks the configuration.
// The returned error matches ErrInvalid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Mark(errors.WithMessage(err, ErrInvalid.Error()), ErrInvalid)
	}

	seen := map[string]bool{}
	for _, s := range c.MCPServers {
		if seen[s.Name] {
			return errors.Mark(errors.Newf("%s: duplicate MCP server %q", ErrInvalid.Error(), s.Name), ErrInvalid)
		}
		seen[s.Name] = true
	}
	return nil
}

// AddServer adds a MCP server from `name=spec` form, as used by the command line.
// A spec without a name is labeled by its position.
func (c *Config) AddServer(value string) error {
	name, spec, ok := strings.Cut(value, "=")
	if !ok || strings.Contains(name, "://") {
		name = ""
		spec = value
	}
	name = strings.TrimSpace(name)
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return errors.Mark(errors.Newf("%s: empty MCP server spec", ErrInvalid.Error()), ErrInvalid)
	}
	if _, err := mcpprovider.ParseSpec(spec); err != nil {
		return errors.Mark(errors.WithMessage(err, ErrInvalid.Error()), ErrInvalid)
	}
	if name == "" {
		name = "server" + strconv.Itoa(len(c.MCPServers)+1)
	}
	c.MCPServers = append(c.MCPServers, &mcpprovider.Config{
		Name:      name,
		Transport: spec,
	})
	return nil
}

// EnabledServers returns the MCP servers that are not disabled.
func (c *Config) EnabledServers() []*mcpprovider.Config {
	var list []*mcpprovider.Config
	for _, s := range c.MCPServers {
		if !s.Disabled {
			list = append(list, s)
		}
	}
	return list
}
