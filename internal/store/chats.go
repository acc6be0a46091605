package store

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"socialkv/internal/idgen"
	"socialkv/internal/keys"
	"socialkv/internal/models"
)

// Chats stores chat:{id} records, the per-participant chats:user sets and
// the messages of each chat. Chat.LastMessage is a denormalized copy kept
// up to date by SaveMessage.
type Chats struct {
	base
}

// SaveChat writes the record and then files it under every participant.
func (c *Chats) SaveChat(ctx context.Context, chat models.Chat) (models.Chat, error) {
	if len(chat.Participants) == 0 {
		return models.Chat{}, ErrInvalidRequest
	}
	if chat.ID == "" {
		chat.ID = idgen.New()
	}
	if chat.CreatedAt == 0 {
		chat.CreatedAt = c.nowMillis()
	}

	steps := []step{
		{"record", func() error { return setJSON(ctx, c.kv, keys.Chat(chat.ID), chat) }},
	}
	for _, p := range chat.Participants {
		p := p
		steps = append(steps, step{"membership " + p, func() error { return c.kv.SAdd(ctx, keys.UserChats(p), chat.ID) }})
	}
	log := c.log().WithFields(logrus.Fields{"chatId": chat.ID, "participants": len(chat.Participants)})
	if err := runSteps(log, "save chat", steps); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (c *Chats) GetChat(ctx context.Context, id string) (models.Chat, bool, error) {
	if id == "" {
		return models.Chat{}, false, nil
	}
	return getJSON[models.Chat](ctx, c.kv, keys.Chat(id))
}

// SaveMessage writes the message, indexes it under the chat and then
// refreshes the chat's lastMessage. It returns ErrNotFound without writing
// anything when the chat does not exist.
func (c *Chats) SaveMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error) {
	if _, ok, err := c.GetChat(ctx, chatID); err != nil {
		return models.Message{}, err
	} else if !ok {
		return models.Message{}, ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = idgen.New()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = c.nowMillis()
	}
	msg.ChatID = chatID

	log := c.log().WithFields(logrus.Fields{"chatId": chatID, "messageId": msg.ID})
	err := runSteps(log, "save message", []step{
		{"record", func() error { return setJSON(ctx, c.kv, keys.Message(chatID, msg.ID), msg) }},
		{"chat index", func() error { return c.kv.SAdd(ctx, keys.ChatMessages(chatID), msg.ID) }},
		{"last message", func() error { return c.setLastMessage(ctx, chatID, msg) }},
	})
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// setLastMessage keeps the most recent message; an older one is ignored.
func (c *Chats) setLastMessage(ctx context.Context, chatID string, msg models.Message) error {
	unlock := c.lock(keys.Chat(chatID))
	defer unlock()

	chat, ok, err := c.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if cur := chat.LastMessage; cur != nil && !newer(msg.CreatedAt, msg.ID, cur.CreatedAt, cur.ID) {
		return nil
	}
	last := msg
	chat.LastMessage = &last
	return setJSON(ctx, c.kv, keys.Chat(chatID), chat)
}

// GetUserChats lists the chats of userID by most recent message. Chats
// without messages come last.
func (c *Chats) GetUserChats(ctx context.Context, userID string) ([]models.Chat, error) {
	chats, err := loadAll[models.Chat](ctx, c.kv, keys.UserChats(userID), keys.Chat)
	if err != nil {
		return nil, err
	}
	sort.Slice(chats, func(i, j int) bool {
		return newer(lastMessageAt(chats[i]), chats[i].ID, lastMessageAt(chats[j]), chats[j].ID)
	})
	return chats, nil
}

// GetChatMessages returns the chat in reading order, oldest first.
func (c *Chats) GetChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	msgs, err := loadAll[models.Message](ctx, c.kv, keys.ChatMessages(chatID), func(id string) string {
		return keys.Message(chatID, id)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(msgs, func(i, j int) bool {
		return newer(msgs[j].CreatedAt, msgs[j].ID, msgs[i].CreatedAt, msgs[i].ID)
	})
	return msgs, nil
}

func lastMessageAt(chat models.Chat) int64 {
	if chat.LastMessage == nil {
		return 0
	}
	return chat.LastMessage.CreatedAt
}
