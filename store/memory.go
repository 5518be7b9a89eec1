package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/effective-security/mcpchat/pkg/llms"
)

type memoryChat struct {
	info     ChatInfo
	messages []llms.Message
}

type inMemory struct {
	mu      sync.RWMutex
	storage map[string]*memoryChat
}

// NewMemoryStore returns a store that lives as long as the process.
func NewMemoryStore() MessageStore {
	return &inMemory{}
}

func (m *inMemory) Messages(_ context.Context, chatID string) ([]llms.Message, error) {
	if chatID == "" {
		return nil, ErrChatIDRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.storage[chatID]
	if c == nil {
		return nil, nil
	}
	return slices.Clone(c.messages), nil
}

func (m *inMemory) Add(_ context.Context, chatID string, msgs ...llms.Message) error {
	if chatID == "" {
		return ErrChatIDRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string]*memoryChat)
	}

	now := time.Now()
	c := m.storage[chatID]
	if c == nil {
		c = &memoryChat{
			info: ChatInfo{ChatID: chatID, CreatedAt: now},
		}
		m.storage[chatID] = c
	}
	for _, msg := range msgs {
		// the vendor representation is not kept, as in the other stores
		msg.Raw = nil
		c.messages = append(c.messages, msg)
	}
	if c.info.Title == "" {
		c.info.Title = titleOf(c.messages)
	}
	c.info.Messages = len(c.messages)
	c.info.UpdatedAt = now
	return nil
}

func (m *inMemory) Reset(_ context.Context, chatID string) error {
	if chatID == "" {
		return ErrChatIDRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, chatID)
	return nil
}

func (m *inMemory) ListChats(_ context.Context) ([]*ChatInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*ChatInfo, 0, len(m.storage))
	for _, c := range m.storage {
		info := c.info
		list = append(list, &info)
	}
	sortChats(list)
	return list, nil
}

func sortChats(list []*ChatInfo) {
	slices.SortFunc(list, func(a, b *ChatInfo) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ChatID, b.ChatID)
	})
}
