// Package messaging benchmarks the chat store.
package messaging

import (
	"context"
	"fmt"
	"time"

	"socialkv/internal/models"
	"socialkv/internal/runner"
	"socialkv/internal/workloads/socialmedia"
)

const numUsers = 50

// ChatTest gives every worker its own chat and has it alternate between
// sending messages and listing its chats. Integrity holds when each chat
// reads back in ascending order, holds every acknowledged message and
// points lastMessage at the last one sent.
type ChatTest struct {
	chats []string
	sent  []int
	last  []string
}

func (t *ChatTest) Setup(ctx context.Context, env *runner.Env) error {
	return socialmedia.SeedUsers(ctx, env.Stores, numUsers)
}

func (t *ChatTest) Run(ctx context.Context, env *runner.Env, concurrency int, duration time.Duration) (*runner.Result, error) {
	t.chats = make([]string, concurrency)
	t.sent = make([]int, concurrency)
	t.last = make([]string, concurrency)
	for w := 0; w < concurrency; w++ {
		chat, err := env.Stores.Chats.SaveChat(ctx, models.Chat{
			ID:           fmt.Sprintf("bench-chat-%d", w),
			Participants: []string{socialmedia.UserID(w % numUsers), socialmedia.UserID((w + 1) % numUsers)},
		})
		if err != nil {
			return nil, err
		}
		t.chats[w] = chat.ID
	}

	rec := runner.NewRecorder()
	total := runner.Loop(ctx, concurrency, duration, rec, func(ctx context.Context, worker, iter int) error {
		if iter%3 == 2 {
			_, err := env.Stores.Chats.GetUserChats(ctx, socialmedia.UserID(worker%numUsers))
			return err
		}
		msg, err := env.Stores.Chats.SaveMessage(ctx, t.chats[worker], models.Message{
			SenderID: socialmedia.UserID(worker % numUsers),
			Text:     fmt.Sprintf("message %d", iter),
		})
		if err == nil {
			t.sent[worker]++
			t.last[worker] = msg.ID
		}
		return err
	})

	result := rec.Result(total)
	ok, err := t.verify(ctx, env)
	if err != nil {
		return nil, err
	}
	result.DataIntegrity = ok
	return result, nil
}

func (t *ChatTest) verify(ctx context.Context, env *runner.Env) (bool, error) {
	for w, chatID := range t.chats {
		msgs, err := env.Stores.Chats.GetChatMessages(ctx, chatID)
		if err != nil {
			return false, err
		}
		if len(msgs) != t.sent[w] {
			return false, nil
		}
		for i := 1; i < len(msgs); i++ {
			if msgs[i-1].CreatedAt > msgs[i].CreatedAt {
				return false, nil
			}
		}
		if t.sent[w] == 0 {
			continue
		}
		chat, found, err := env.Stores.Chats.GetChat(ctx, chatID)
		if err != nil {
			return false, err
		}
		if !found || chat.LastMessage == nil || chat.LastMessage.ID != t.last[w] {
			return false, nil
		}
	}
	return true, nil
}

func (t *ChatTest) Teardown(ctx context.Context, env *runner.Env) error {
	t.chats, t.sent, t.last = nil, nil, nil
	return nil
}
