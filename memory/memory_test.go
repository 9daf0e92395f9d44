package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/aqua777/docquery/llm"
	"github.com/aqua777/docquery/storage/chatstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCount counts whitespace separated words.
func wordCount(text string) int {
	return len(strings.Fields(text))
}

func TestChatMemoryBuffer(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		mem := NewChatMemoryBuffer()
		assert.Equal(t, DefaultTokenLimit, mem.TokenLimit())
		assert.Equal(t, DefaultChatStoreKey, mem.ChatStoreKey())

		messages, err := mem.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("Put and Get under the limit", func(t *testing.T) {
		mem := NewChatMemoryBuffer()
		require.NoError(t, mem.Put(ctx, llm.NewUserMessage("Hello"), llm.NewAssistantMessage("Hi there!")))

		messages, err := mem.Get(ctx)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "Hello", messages[0].Content)
	})

	t.Run("trims oldest messages first", func(t *testing.T) {
		mem := NewChatMemoryBuffer(WithTokenLimit(6), WithTokenizer(wordCount))
		require.NoError(t, mem.Set(ctx, []llm.ChatMessage{
			llm.NewUserMessage("one two three"),
			llm.NewAssistantMessage("four five"),
			llm.NewUserMessage("six seven"),
			llm.NewAssistantMessage("eight nine"),
		}))

		messages, err := mem.Get(ctx)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, "six seven", messages[0].Content)
		assert.Equal(t, "eight nine", messages[1].Content)

		all, err := mem.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("never starts on an assistant message", func(t *testing.T) {
		mem := NewChatMemoryBuffer(WithTokenLimit(4), WithTokenizer(wordCount))
		require.NoError(t, mem.Set(ctx, []llm.ChatMessage{
			llm.NewUserMessage("a b"),
			llm.NewAssistantMessage("c"),
			llm.NewUserMessage("d e"),
			llm.NewAssistantMessage("f"),
		}))

		messages, err := mem.Get(ctx)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, llm.MessageRoleUser, messages[0].Role)
		assert.Equal(t, "d e", messages[0].Content)
	})

	t.Run("single oversized message yields nothing", func(t *testing.T) {
		mem := NewChatMemoryBuffer(WithTokenLimit(2), WithTokenizer(wordCount))
		require.NoError(t, mem.Put(ctx, llm.NewUserMessage("far too many words here")))

		messages, err := mem.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("shared store with separate keys", func(t *testing.T) {
		store := chatstore.NewSimpleChatStore()
		a := NewChatMemoryBuffer(WithChatStore(store), WithChatStoreKey("reports"))
		b := NewChatMemoryBuffer(WithChatStore(store), WithChatStoreKey("contracts"))

		require.NoError(t, a.Put(ctx, llm.NewUserMessage("about reports")))
		require.NoError(t, b.Put(ctx, llm.NewUserMessage("about contracts")))

		messages, err := a.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "about reports", messages[0].Content)

		require.NoError(t, a.Reset(ctx))
		messages, err = a.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, messages)

		messages, err = b.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, messages, 1)
		assert.Same(t, store, a.ChatStore())
	})
}

func TestDefaultTokenizer(t *testing.T) {
	assert.Equal(t, 0, DefaultTokenizer(""))
	assert.Equal(t, 2, DefaultTokenizer("12345678"))
}
