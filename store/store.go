// Package store persists conversation histories, so a chat can be resumed
// by its ID.
//
// Messages are stored in their JSON form. The vendor representation in
// Message.Raw is not stored: a backend rebuilds a restored model turn from
// its parts.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "store")

// Store types.
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// DefaultPrefix is the key prefix of the redis store.
const DefaultPrefix = "mcpchat"

// maxTitle is the length of the title taken from the first query.
const maxTitle = 60

// ErrChatIDRequired is returned when a chat ID is empty.
var ErrChatIDRequired = errors.New("chat ID is required")

// ChatInfo describes a stored chat.
type ChatInfo struct {
	ChatID    string    `json:"chat_id" yaml:"chat_id"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`
	Messages  int       `json:"messages" yaml:"messages"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// MessageStore keeps the message history of chats.
// Implementations are safe for concurrent use.
type MessageStore interface {
	// Messages returns the history of the chat, empty for an unknown chat.
	Messages(ctx context.Context, chatID string) ([]llms.Message, error)
	// Add appends the messages to the history of the chat.
	Add(ctx context.Context, chatID string, msgs ...llms.Message) error
	// Reset removes the chat.
	Reset(ctx context.Context, chatID string) error
	// ListChats returns the stored chats, most recently updated first.
	ListChats(ctx context.Context) ([]*ChatInfo, error)
}

// Config specifies the store.
type Config struct {
	// Type is memory or redis
	Type string `json:"type" yaml:"type" toml:"type" validate:"required,oneof=memory redis"`
	// URL is the redis URL, such as redis://localhost:6379/0
	URL string `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty" validate:"required_if=Type redis"`
	// Prefix is the redis key prefix
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	// TTL is the expiration of an idle chat in redis, such as 72h. Empty for no expiration.
	TTL string `json:"ttl,omitempty" yaml:"ttl,omitempty" toml:"ttl,omitempty"`
}

// New returns the configured store.
func New(cfg *Config) (MessageStore, error) {
	switch strings.ToLower(cfg.Type) {
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeRedis:
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid redis URL")
		}
		var ttl time.Duration
		if cfg.TTL != "" {
			ttl, err = time.ParseDuration(cfg.TTL)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid TTL %q", cfg.TTL)
			}
		}
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = DefaultPrefix
		}
		return NewRedisStore(redis.NewClient(opts), prefix, ttl), nil
	default:
		return nil, errors.Newf("unsupported store type %q", cfg.Type)
	}
}

// titleOf returns the start of the first human message.
func titleOf(msgs []llms.Message) string {
	for _, m := range msgs {
		if m.Role != llms.RoleHuman {
			continue
		}
		title := strings.Join(strings.Fields(m.Text()), " ")
		if r := []rune(title); len(r) > maxTitle {
			title = string(r[:maxTitle]) + "..."
		}
		return title
	}
	return ""
}
