// Package notify turns tracker, schedule and note data into chat messages. Nothing here
// touches the store; callers fetch the data and hand it in.
package notify

import (
	"context"
	"strings"
	"unicode/utf8"
)

// ParseModeHTML is the Telegram parse mode every formatted message is written for.
const ParseModeHTML = "HTML"

// MaxMessageLength is Telegram's limit for one message text, in characters.
const MaxMessageLength = 4096

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Message is a formatted chat message with an optional inline keyboard, one slice per row.
type Message struct {
	Text     string     `json:"text"`
	Keyboard [][]Button `json:"keyboard,omitempty"`
}

// Sink delivers a message to the configured destination chat.
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, msg Message) error

func (f SinkFunc) Deliver(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Split breaks msg into messages of at most limit characters, cutting only between
// blank-line separated paragraphs. A single paragraph over the limit is sent on its own.
// The keyboard stays on the last part.
func Split(msg Message, limit int) []Message {
	if utf8.RuneCountInString(msg.Text) <= limit {
		return []Message{msg}
	}

	var (
		parts []Message
		cur   strings.Builder
		n     int
	)
	for _, para := range strings.Split(msg.Text, "\n\n") {
		size := utf8.RuneCountInString(para)
		if n > 0 && n+2+size > limit {
			parts = append(parts, Message{Text: cur.String()})
			cur.Reset()
			n = 0
		}
		if n > 0 {
			cur.WriteString("\n\n")
			n += 2
		}
		cur.WriteString(para)
		n += size
	}
	parts = append(parts, Message{Text: cur.String(), Keyboard: msg.Keyboard})
	return parts
}
