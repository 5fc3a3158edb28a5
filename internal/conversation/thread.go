// Package conversation keeps the AI chat log for the active file.
//
// A Thread resets to a single greeting whenever the workbench's active file
// changes. Replies to requests issued before the change are dropped.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vizbench/vzb/internal/client"
	"github.com/vizbench/vzb/internal/workbench"
)

const (
	// Greeting is the first message of every thread.
	Greeting = "Hello! I'm your AI assistant. Select a file and ask me anything about its data."

	noResponseText = "Failed to get response."
	networkErrText = "Network error. Could not connect to the AI service."
)

var (
	// ErrNoFile is returned when a message is sent with no active file.
	ErrNoFile = errors.New("no file selected")
	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrStale is returned by Send when the active file changed before the reply arrived.
	ErrStale = errors.New("active file changed before the reply arrived")
)

// Sender identifies who wrote a message.
type Sender string

const (
	User      Sender = "user"
	Assistant Sender = "assistant"
)

// Message is one entry of the thread.
type Message struct {
	ID      string `json:"id"`
	Sender  Sender `json:"sender"`
	Text    string `json:"text"`
	IsError bool   `json:"is_error,omitempty"`
}

// Chatter sends the chat history to the AI backend. *client.Client implements it.
type Chatter interface {
	Chat(ctx context.Context, req *client.ChatRequest) (*client.ChatResponse, error)
}

// Option configures a Thread.
type Option func(*Thread)

// WithLogger sets the thread's logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Thread) {
		if l != nil {
			t.logger = l
		}
	}
}

// Thread is the message log for the active file. It is safe for concurrent use;
// concurrent Sends are independent requests.
type Thread struct {
	chatter Chatter
	logger  *zap.Logger

	mu       sync.Mutex
	token    workbench.Token
	fileID   int64
	messages []Message
}

// New creates a thread holding only the greeting, with no file.
func New(chatter Chatter, opts ...Option) *Thread {
	t := &Thread{chatter: chatter, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	t.messages = []Message{greeting()}
	return t
}

// Bind resets the thread on every active-file change of c.
func (t *Thread) Bind(c *workbench.Controller) {
	c.OnActiveFileChange(t.Reset)
}

// Reset discards every message, pending replies included, and starts over
// with the greeting for the file in ch.
func (t *Thread) Reset(ch workbench.Change) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ch.Token
	t.fileID = ch.FileID
	t.messages = []Message{greeting()}
}

// Focus points a thread that is not bound to a controller at fileID and
// starts over with the greeting. Replies pending for the previous file are
// dropped.
func (t *Thread) Focus(fileID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token++
	t.fileID = fileID
	t.messages = []Message{greeting()}
}

// FileID returns the file the thread is about, or zero.
func (t *Thread) FileID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fileID
}

// Messages returns a copy of the thread.
func (t *Thread) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.messages...)
}

// AppendUser adds a user message immediately and returns the token the reply
// must carry.
func (t *Thread) AppendUser(text string) (workbench.Token, error) {
	req, err := t.appendUser(text)
	return req.token, err
}

// AppendAssistant adds a reply if tok is still current. It reports whether
// the message was applied.
func (t *Thread) AppendAssistant(tok workbench.Token, text string) bool {
	return t.appendIfCurrent(tok, Message{ID: uuid.NewString(), Sender: Assistant, Text: text})
}

// AppendError adds an error notice if tok is still current.
func (t *Thread) AppendError(tok workbench.Token, text string) bool {
	return t.appendIfCurrent(tok, Message{ID: uuid.NewString(), Sender: Assistant, Text: text, IsError: true})
}

// Send appends text as a user message, asks the backend for a reply and
// appends the reply, or an error notice when the request fails. The returned
// message is whatever was appended. ErrStale is returned when the active file
// changed while waiting.
func (t *Thread) Send(ctx context.Context, text string) (Message, error) {
	req, err := t.appendUser(text)
	if err != nil {
		return Message{}, err
	}

	fileID := req.body.FileID
	resp, err := t.chatter.Chat(ctx, &req.body)

	var reply Message
	if err != nil {
		t.logger.Warn("chat request failed", zap.Int64("file_id", fileID), zap.Error(err))
		reply = Message{ID: uuid.NewString(), Sender: Assistant, Text: errorText(err), IsError: true}
	} else {
		reply = Message{ID: uuid.NewString(), Sender: Assistant, Text: resp.Reply}
	}

	if !t.appendIfCurrent(req.token, reply) {
		t.logger.Debug("discarding stale chat reply", zap.Int64("file_id", fileID))
		return Message{}, ErrStale
	}
	return reply, nil
}

// pending is a chat request tagged with the token it was issued under.
type pending struct {
	token workbench.Token
	body  client.ChatRequest
}

func (t *Thread) appendUser(text string) (pending, error) {
	if strings.TrimSpace(text) == "" {
		return pending{}, ErrEmptyMessage
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fileID <= 0 {
		return pending{}, ErrNoFile
	}
	t.messages = append(t.messages, Message{ID: uuid.NewString(), Sender: User, Text: text})
	return pending{
		token: t.token,
		body:  client.ChatRequest{FileID: t.fileID, Messages: history(t.messages)},
	}, nil
}

func (t *Thread) appendIfCurrent(tok workbench.Token, m Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tok != t.token || t.fileID <= 0 {
		return false
	}
	t.messages = append(t.messages, m)
	return true
}

// history converts the thread into the chat request body. Error notices are
// not sent.
func history(messages []Message) []client.ChatTurn {
	turns := make([]client.ChatTurn, 0, len(messages))
	for _, m := range messages {
		if m.IsError {
			continue
		}
		role := "assistant"
		if m.Sender == User {
			role = "user"
		}
		turns = append(turns, client.ChatTurn{Role: role, Content: m.Text})
	}
	return turns
}

func errorText(err error) string {
	var httpErr *client.Error
	if errors.As(err, &httpErr) {
		if msg := httpErr.Message(); msg != "" {
			return "Error: " + msg
		}
		return "Error: " + noResponseText
	}
	return networkErrText
}

func greeting() Message {
	return Message{ID: uuid.NewString(), Sender: Assistant, Text: Greeting}
}
