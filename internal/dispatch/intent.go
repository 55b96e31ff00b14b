// internal/dispatch/intent.go
package dispatch

// IntentKind enumerates the closed set of recognized chat intents. The
// default for every unrecognized input, including empty strings and
// near-misses of the trigger, is IntentEcho.
type IntentKind int

const (
	IntentEcho IntentKind = iota
	IntentDescribe
)

// Intent is one parsed inbound message.
type Intent struct {
	Kind IntentKind
	Text string
}

// ParseIntent matches the trigger token exactly: case-sensitive,
// whitespace-sensitive, no substring matching. Everything else echoes.
func ParseIntent(text, trigger string) Intent {
	if trigger != "" && text == trigger {
		return Intent{Kind: IntentDescribe, Text: text}
	}
	return Intent{Kind: IntentEcho, Text: text}
}
