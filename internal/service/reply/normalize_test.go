package reply

import (
	"encoding/json"
	"testing"

	"github.com/zhouzirui/n8n-chat/backend/internal/model/chat"
)

func marshal(t *testing.T, p chat.Payload) string {
	t.Helper()
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(b)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		kind chat.PayloadKind
		want string
	}{
		{"object", `{"reply":"hi"}`, chat.PayloadObject, `{"reply":"hi"}`},
		{"object keeps key order", `{"z":1,"a":{"b":[1,2]},"m":"x"}`, chat.PayloadObject, `{"z":1,"a":{"b":[1,2]},"m":"x"}`},
		{"padded object", "  {\"output\": \"ok\"}\n", chat.PayloadObject, `{"output":"ok"}`},
		{"empty object", `{}`, chat.PayloadObject, `{}`},
		{"plain text", "plain text", chat.PayloadText, `{"reply":"plain text"}`},
		{"empty body", "", chat.PayloadText, `{"reply":"No response content"}`},
		{"whitespace body", "  ", chat.PayloadText, `{"reply":"  "}`},
		{"truncated json", `{"reply":`, chat.PayloadText, `{"reply":"{\"reply\":"}`},
		{"array", `[{"output":"a"}]`, chat.PayloadObject, `{"reply":[{"output":"a"}]}`},
		{"number", `42`, chat.PayloadObject, `{"reply":42}`},
		{"string", `"hello"`, chat.PayloadObject, `{"reply":"hello"}`},
		{"null", `null`, chat.PayloadObject, `{"reply":null}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.raw)
			if got.Kind != tc.kind {
				t.Fatalf("kind: got %v want %v", got.Kind, tc.kind)
			}
			if s := marshal(t, got); s != tc.want {
				t.Fatalf("payload: got %s want %s", s, tc.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{`{"b":1,"a":2}`, "plain", "", `[1,2]`, `{"reply":"x"`}
	for _, raw := range inputs {
		first := marshal(t, Normalize(raw))
		second := marshal(t, Normalize(raw))
		if first != second {
			t.Fatalf("Normalize(%q) not stable: %s vs %s", raw, first, second)
		}
	}
}

func TestDisplayText(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain text", "hello there", "hello there"},
		{"empty body", "", EmptyBodyText},
		{"reply wins", `{"text":"t","reply":"r"}`, "r"},
		{"output before text", `{"output":"a","text":"b"}`, "a"},
		{"text before message", `{"message":"m","text":"t"}`, "t"},
		{"message", `{"id":1,"message":"m"}`, "m"},
		{"empty reply skipped", `{"reply":"","output":"o"}`, "o"},
		{"non-string reply skipped", `{"reply":{"x":1},"text":"t"}`, "t"},
		{"completion", `{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"from model"}}]}`, "from model"},
		{"first value string", `{"answer":"42","other":"x"}`, "42"},
		{"first value object", `{"data":{"a": 1},"other":"x"}`, `{"a":1}`},
		{"first value number", `{"count":3}`, "3"},
		{"empty object", `{}`, "{}"},
		{"wrapped array", `["a","b"]`, `["a","b"]`},
		{"wrapped string", `"hi"`, "hi"},
		{"null body", "null", "null"},
		{"first value null", `{"x":null}`, "null"},
		{"null reply falls to first value", `{"reply":null,"output":5}`, "null"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DisplayText(Normalize(tc.raw)); got != tc.want {
				t.Fatalf("DisplayText(%s) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}
