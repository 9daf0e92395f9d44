package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/docquery/rag/reader"
)

type fakeAPI struct {
	ingested   []reader.File
	collection string
	questions  []string
	answer     string
	resetErr   error
	resets     int
}

func (f *fakeAPI) Ingest(ctx context.Context, collection string, files []reader.File) string {
	f.collection = collection
	f.ingested = files
	return "✅ **Ingestion successful**\n\nCollection " + collection + " successfully created for 1 files."
}

func (f *fakeAPI) Chat(ctx context.Context, collection, question string) string {
	f.collection = collection
	f.questions = append(f.questions, question)
	return f.answer
}

func (f *fakeAPI) ResetChat(ctx context.Context, collection string) error {
	f.resets++
	return f.resetErr
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "ctrl+e":
		return tea.KeyMsg{Type: tea.KeyCtrlE}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

// runBatch executes the command and returns the first message that is not a
// spinner tick.
func runBatch(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return msg
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		switch out := c().(type) {
		case ingestDoneMsg, chatDoneMsg, resetDoneMsg:
			return out
		}
	}
	t.Fatal("no result message in batch")
	return nil
}

func TestIngestTab(t *testing.T) {
	api := &fakeAPI{}
	var loaded []string
	m := New(api, WithFileLoader(func(paths ...string) ([]reader.File, error) {
		loaded = paths
		return []reader.File{{Name: "a.txt", Data: []byte("a")}}, nil
	}))
	assert.Equal(t, TabIngest, m.tab)
	assert.Contains(t, m.View(), Title)
	assert.Contains(t, m.View(), "Document Ingestion")

	m, _ = update(t, m, key("docs"))
	m, _ = update(t, m, key("tab"))
	m, _ = update(t, m, key("a.txt, notes/"))
	assert.Equal(t, "docs", m.ingestCollection.Value())
	assert.Equal(t, "a.txt, notes/", m.ingestPaths.Value())

	m, cmd := update(t, m, key("enter"))
	assert.True(t, m.busy)
	assert.Equal(t, []string{"a.txt", "notes/"}, loaded)

	msg := runBatch(t, cmd)
	m, _ = update(t, m, msg)
	assert.False(t, m.busy)
	assert.Equal(t, "docs", api.collection)
	require.Len(t, api.ingested, 1)
	assert.True(t, strings.HasPrefix(m.ingestResult, "✅ **Ingestion successful**"))
	assert.Contains(t, m.View(), "successfully created")
}

func TestIngestTabErrors(t *testing.T) {
	m := New(&fakeAPI{}, WithFileLoader(func(paths ...string) ([]reader.File, error) {
		return nil, errors.New("no such file")
	}))

	m, cmd := update(t, m, key("enter"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.ingestResult, "❌ **Error**")

	m.ingestCollection.SetValue("docs")
	m.ingestPaths.SetValue("missing.pdf")
	m, cmd = update(t, m, key("enter"))
	assert.Nil(t, cmd)
	assert.False(t, m.busy)
	assert.Equal(t, "❌ **Error during file upload**\n\nno such file", m.ingestResult)
}

func TestChatTab(t *testing.T) {
	api := &fakeAPI{answer: "The documents describe Go."}
	m := New(api)

	m, _ = update(t, m, key("ctrl+t"))
	assert.Equal(t, TabChat, m.tab)
	assert.Contains(t, m.View(), ExamplePrompt)

	m, cmd := update(t, m, key("enter"))
	assert.Nil(t, cmd)
	assert.Equal(t, "Enter a collection name first.", m.status)

	m, _ = update(t, m, key("docs"))
	m, _ = update(t, m, key("ctrl+e"))
	assert.Equal(t, ExamplePrompt, m.prompt.Value())

	m, cmd = update(t, m, key("enter"))
	assert.True(t, m.busy)
	assert.Empty(t, m.prompt.Value())
	require.Len(t, m.transcript, 1)
	assert.True(t, m.transcript[0].user)

	m, _ = update(t, m, runBatch(t, cmd))
	assert.False(t, m.busy)
	assert.Equal(t, []string{ExamplePrompt}, api.questions)
	assert.Equal(t, "docs", api.collection)
	require.Len(t, m.transcript, 2)
	assert.Equal(t, "The documents describe Go.", m.transcript[1].text)

	m, cmd = update(t, m, key("ctrl+r"))
	m, _ = update(t, m, runBatch(t, cmd))
	assert.Equal(t, 1, api.resets)
	assert.Empty(t, m.transcript)
	assert.Equal(t, "Conversation cleared.", m.status)

	api.resetErr = errors.New("down")
	m, cmd = update(t, m, key("ctrl+r"))
	m, _ = update(t, m, runBatch(t, cmd))
	assert.Equal(t, "Reset failed: down", m.status)
}

func TestQuit(t *testing.T) {
	m := New(&fakeAPI{})
	_, cmd := update(t, m, key("esc"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSplitPaths(t *testing.T) {
	assert.Equal(t, []string{"a.pdf", "my docs/b.txt"}, splitPaths(" a.pdf ,, my docs/b.txt "))
	assert.Empty(t, splitPaths("  "))
}
