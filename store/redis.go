package store

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store keeps a chat in two keys and indexes the chats in a set:
// - `/<prefix>/chatstore/messages/<chatID>` is the list of JSON messages
// - `/<prefix>/chatstore/info/<chatID>` is the JSON ChatInfo
// - `/<prefix>/chatstore/chats` is the set of chat IDs
// With a TTL, both chat keys expire after the chat is idle for that long.

type redisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store over the redis client.
// A zero ttl means the chats do not expire.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) MessageStore {
	return &redisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (m *redisStore) messagesKey(chatID string) string {
	return path.Join("/", m.prefix, "chatstore", "messages", chatID)
}

func (m *redisStore) infoKey(chatID string) string {
	return path.Join("/", m.prefix, "chatstore", "info", chatID)
}

func (m *redisStore) listKey() string {
	return path.Join("/", m.prefix, "chatstore", "chats")
}

// observe records the duration and the failure of a redis operation.
func observe(op string, started time.Time, err error) {
	metricskey.PerfStoreCall.MeasureSince(started, op)
	if err != nil {
		metricskey.StatsStoreCallsFailed.IncrCounter(1, op)
	}
}

func (m *redisStore) Messages(ctx context.Context, chatID string) (_ []llms.Message, err error) {
	if chatID == "" {
		return nil, ErrChatIDRequired
	}
	defer func(started time.Time) { observe("messages", started, err) }(time.Now())

	data, err := m.client.LRange(ctx, m.messagesKey(chatID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get messages from Redis")
	}

	messages := make([]llms.Message, 0, len(data))
	for i, item := range data {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, errors.WithMessagef(err, "chat %q: message %d", chatID, i)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (m *redisStore) Add(ctx context.Context, chatID string, msgs ...llms.Message) (err error) {
	if chatID == "" {
		return ErrChatIDRequired
	}
	if len(msgs) == 0 {
		return nil
	}
	defer func(started time.Time) { observe("add", started, err) }(time.Now())

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal message")
		}
		values = append(values, data)
	}

	key := m.messagesKey(chatID)
	pipe := m.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	length := pipe.LLen(ctx, key)
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store messages in Redis")
	}

	return m.updateInfo(ctx, chatID, int(length.Val()), msgs)
}

func (m *redisStore) updateInfo(ctx context.Context, chatID string, count int, added []llms.Message) error {
	info, err := m.getInfo(ctx, chatID)
	if err != nil {
		return err
	}

	now := time.Now()
	if info == nil {
		info = &ChatInfo{ChatID: chatID, CreatedAt: now}
	}
	if info.Title == "" {
		info.Title = titleOf(added)
	}
	info.Messages = count
	info.UpdatedAt = now

	data, err := json.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "failed to marshal chat info")
	}

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, m.infoKey(chatID), data, m.ttl)
	pipe.SAdd(ctx, m.listKey(), chatID)
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store chat info in Redis")
	}
	return nil
}

// getInfo returns nil for an unknown chat.
func (m *redisStore) getInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	data, err := m.client.Get(ctx, m.infoKey(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get chat info from Redis")
	}

	info := new(ChatInfo)
	if err = json.Unmarshal([]byte(data), info); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal chat info")
	}
	return info, nil
}

func (m *redisStore) Reset(ctx context.Context, chatID string) (err error) {
	if chatID == "" {
		return ErrChatIDRequired
	}
	defer func(started time.Time) { observe("reset", started, err) }(time.Now())

	pipe := m.client.TxPipeline()
	pipe.Del(ctx, m.messagesKey(chatID), m.infoKey(chatID))
	pipe.SRem(ctx, m.listKey(), chatID)
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}
	return nil
}

// ListChats returns the chats in the index. Expired chats are removed from
// the index on the way.
func (m *redisStore) ListChats(ctx context.Context) (_ []*ChatInfo, err error) {
	defer func(started time.Time) { observe("list", started, err) }(time.Now())

	ids, err := m.client.SMembers(ctx, m.listKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list chats from Redis")
	}

	list := make([]*ChatInfo, 0, len(ids))
	for _, id := range ids {
		info, err := m.getInfo(ctx, id)
		if err != nil {
			return nil, err
		}
		if info == nil {
			logger.ContextKV(ctx, xlog.DEBUG, "status", "expired", "chat_id", id)
			if err := m.client.SRem(ctx, m.listKey(), id).Err(); err != nil {
				logger.ContextKV(ctx, xlog.ERROR, "reason", "SRem", "chat_id", id, "err", err.Error())
			}
			continue
		}
		list = append(list, info)
	}
	sortChats(list)
	return list, nil
}
