// Package bot turns chat commands and button presses into service calls. The handler is
// transport-neutral; telegram.go adapts it to the Telegram Bot API.
package bot

import "habitbot/internal/notify"

// Update is one incoming chat event: either a text message or a button press.
type Update struct {
	ChatID   int64
	Text     string
	Callback *Callback
}

type Callback struct {
	ID        string
	Data      string
	MessageID int
}

// Answer is the toast shown for a button press. Alert shows it as a modal.
type Answer struct {
	Text  string
	Alert bool
}

// Reply is everything the bot does in response to an update.
type Reply struct {
	Messages []notify.Message
	// Answer is set for callbacks; Telegram requires every callback to be answered.
	Answer *Answer
	// ClearKeyboard removes the inline keyboard from the message the button belonged to.
	ClearKeyboard bool
}

func text(s string) Reply {
	return Reply{Messages: []notify.Message{{Text: s}}}
}

func message(m notify.Message) Reply {
	return Reply{Messages: []notify.Message{m}}
}
