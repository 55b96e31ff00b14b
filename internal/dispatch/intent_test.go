package dispatch

import "testing"

func TestParseIntent(t *testing.T) {
	const trigger = "dq_lineage_exp"

	tests := []struct {
		name string
		text string
		want IntentKind
	}{
		{"exact trigger", "dq_lineage_exp", IntentDescribe},
		{"leading space", " dq_lineage_exp", IntentEcho},
		{"trailing space", "dq_lineage_exp ", IntentEcho},
		{"different case", "DQ_Lineage_Exp", IntentEcho},
		{"substring", "show me dq_lineage_exp please", IntentEcho},
		{"empty string", "", IntentEcho},
		{"unrelated", "hello", IntentEcho},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseIntent(tt.text, trigger)
			if got.Kind != tt.want {
				t.Errorf("ParseIntent(%q) kind = %v, want %v", tt.text, got.Kind, tt.want)
			}
			if got.Text != tt.text {
				t.Errorf("ParseIntent(%q) text = %q, want original text", tt.text, got.Text)
			}
		})
	}
}

func TestParseIntentEmptyTrigger(t *testing.T) {
	// An unset trigger must never match, not even the empty message.
	if got := ParseIntent("", ""); got.Kind != IntentEcho {
		t.Errorf("empty trigger matched empty message")
	}
}
