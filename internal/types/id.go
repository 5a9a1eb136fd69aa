package types

import "strings"

// TelegramPrefix marks rider ids owned by the Telegram transport.
const TelegramPrefix = "tg:"

// ID identifies riders, drivers and orders. Transports choose the format
// (e.g. "tg:12345" for Telegram users).
type ID string

func (id ID) String() string { return string(id) }

// HasPrefix reports whether id belongs to the namespace prefix.
func (id ID) HasPrefix(prefix string) bool { return strings.HasPrefix(string(id), prefix) }
