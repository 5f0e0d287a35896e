package variables

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"expandd/internal/template"
)

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) ReadText(ctx context.Context) (string, error) {
	return f.text, f.err
}

type fakeRunner struct {
	out string
	err error
}

func (f *fakeRunner) Run(ctx context.Context, command string) (string, error) {
	return f.out, f.err
}

func fixedClock() func() time.Time {
	at := time.Date(2025, 3, 9, 14, 5, 7, 0, time.Local)
	return func() time.Time { return at }
}

func resolve(t *testing.T, r *Resolver, s string) Resolved {
	t.Helper()
	return r.Resolve(context.Background(), template.Parse(s))
}

func TestLiteralRoundTrip(t *testing.T) {
	r := New(WithClock(fixedClock()))
	in := "plain text, no variables, no marker"
	got := resolve(t, r, in)
	if got.Text != in {
		t.Errorf("round trip broken: got %q, want %q", got.Text, in)
	}
	if got.HasCursor() {
		t.Error("no cursor expected")
	}
}

func TestDateDefaultFormat(t *testing.T) {
	r := New(WithClock(fixedClock()))
	got := resolve(t, r, "{{date}}")
	if got.Text != "2025-03-09" {
		t.Errorf("default date = %q, want 2025-03-09", got.Text)
	}
}

func TestDateCustomFormat(t *testing.T) {
	r := New(WithClock(fixedClock()))
	got := resolve(t, r, "{{date:%d/%m/%Y}}")
	if got.Text != "09/03/2025" {
		t.Errorf("custom date = %q, want 09/03/2025", got.Text)
	}
}

func TestDateInvalidFormatFallsBack(t *testing.T) {
	r := New(WithClock(fixedClock()))
	got := resolve(t, r, "{{date:%Q}}")
	if got.Text != "2025-03-09" {
		t.Errorf("invalid pattern should fall back to default, got %q", got.Text)
	}
}

func TestTimeAndDateTime(t *testing.T) {
	r := New(WithClock(fixedClock()))
	if got := resolve(t, r, "{{time}}"); got.Text != "14:05:07" {
		t.Errorf("time = %q, want 14:05:07", got.Text)
	}
	if got := resolve(t, r, "{{datetime}}"); got.Text != "2025-03-09 14:05:07" {
		t.Errorf("datetime = %q", got.Text)
	}
}

func TestTimeAndDateTimeCustomFormats(t *testing.T) {
	r := New(WithClock(fixedClock()))
	if got := resolve(t, r, "{{time:%H.%M}}"); got.Text != "14.05" {
		t.Errorf("time with format = %q, want 14.05", got.Text)
	}
	if got := resolve(t, r, "{{datetime:%d/%m/%Y %H:%M}}"); got.Text != "09/03/2025 14:05" {
		t.Errorf("datetime with format = %q", got.Text)
	}
	// Bad patterns fall back to the kind's default.
	if got := resolve(t, r, "{{time:%Q}}"); got.Text != "14:05:07" {
		t.Errorf("invalid time pattern should fall back, got %q", got.Text)
	}
}

func TestCustomVariables(t *testing.T) {
	r := New(WithCustomVars(map[string]any{
		"signature": "Alice",
		"user": map[string]any{
			"name":  "Alice Smith",
			"email": "alice@example.com",
			"port":  int64(8080),
		},
	}))

	if got := resolve(t, r, "{{signature}}"); got.Text != "Alice" {
		t.Errorf("top-level custom = %q", got.Text)
	}
	if got := resolve(t, r, "{{user.name}} <{{user.email}}>"); got.Text != "Alice Smith <alice@example.com>" {
		t.Errorf("dot-path custom = %q", got.Text)
	}
	// Non-string scalar leaves stringify.
	if got := resolve(t, r, "port {{user.port}}"); got.Text != "port 8080" {
		t.Errorf("scalar leaf = %q", got.Text)
	}
}

func TestCustomVariableMissStaysLiteral(t *testing.T) {
	r := New(WithCustomVars(map[string]any{
		"user": map[string]any{"name": "Alice"},
	}))

	for _, in := range []string{
		"{{user.phone}}", // missing leaf
		"{{user}}",       // path stops on a table
		"{{nope.x.y}}",   // missing root
	} {
		if got := resolve(t, r, in); got.Text != in {
			t.Errorf("unresolved %q rendered as %q, want the token unchanged", in, got.Text)
		}
	}

	// No table configured at all.
	r = New()
	if got := resolve(t, r, "a {{user.name}} b"); got.Text != "a {{user.name}} b" {
		t.Errorf("missing table: got %q", got.Text)
	}
}

func TestSetCustomReplacesTable(t *testing.T) {
	r := New()
	if got := resolve(t, r, "{{city}}"); got.Text != "{{city}}" {
		t.Errorf("before SetCustom: %q", got.Text)
	}
	r.SetCustom(map[string]any{"city": "Berlin"})
	if got := resolve(t, r, "{{city}}"); got.Text != "Berlin" {
		t.Errorf("after SetCustom: %q", got.Text)
	}
}

func TestBuiltinKindsShadowCustomNames(t *testing.T) {
	// A custom entry named like a built-in kind never takes over.
	r := New(WithClock(fixedClock()), WithCustomVars(map[string]any{"date": "never"}))
	if got := resolve(t, r, "{{date}}"); got.Text != "2025-03-09" {
		t.Errorf("built-in date must win over custom entry, got %q", got.Text)
	}
}

func TestEnvVariable(t *testing.T) {
	t.Setenv("EXPANDD_TEST_VAR", "resolved")
	r := New()
	if got := resolve(t, r, "v={{env:EXPANDD_TEST_VAR}}"); got.Text != "v=resolved" {
		t.Errorf("env = %q", got.Text)
	}
	// Unset variable resolves to empty, not an error.
	if got := resolve(t, r, "v={{env:EXPANDD_TEST_UNSET_VAR}}"); got.Text != "v=" {
		t.Errorf("unset env should be empty, got %q", got.Text)
	}
}

func TestClipboard(t *testing.T) {
	r := New(WithClipboard(&fakeClipboard{text: "clip"}))
	if got := resolve(t, r, "{{clipboard}}"); got.Text != "clip" {
		t.Errorf("clipboard = %q", got.Text)
	}

	// Empty clipboard is empty string, not an error.
	r = New(WithClipboard(&fakeClipboard{text: ""}))
	if got := resolve(t, r, "[{{clipboard}}]"); got.Text != "[]" {
		t.Errorf("empty clipboard = %q", got.Text)
	}

	// Failing provider degrades to empty.
	r = New(WithClipboard(&fakeClipboard{err: errors.New("no display")}))
	if got := resolve(t, r, "[{{clipboard}}]"); got.Text != "[]" {
		t.Errorf("failed clipboard = %q", got.Text)
	}
}

func TestShellOutputTrimsTrailingNewline(t *testing.T) {
	r := New(WithRunner(&fakeRunner{out: "hello\n"}))
	if got := resolve(t, r, "{{shell:echo hello}}"); got.Text != "hello" {
		t.Errorf("shell = %q, want hello", got.Text)
	}
}

func TestShellFailureResolvesEmpty(t *testing.T) {
	// Real runner, command guaranteed to exit nonzero.
	r := New()
	got := resolve(t, r, "a{{shell:false}}b")
	if got.Text != "ab" {
		t.Errorf("failed shell should resolve empty, got %q", got.Text)
	}
}

func TestShellTimeout(t *testing.T) {
	r := New(WithTimeout(50 * time.Millisecond))
	start := time.Now()
	got := resolve(t, r, "{{shell:sleep 5}}")
	if got.Text != "" {
		t.Errorf("timed-out shell should resolve empty, got %q", got.Text)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestUUID(t *testing.T) {
	r := New()
	got := resolve(t, r, "{{uuid}}")
	if len(got.Text) != 36 || strings.Count(got.Text, "-") != 4 {
		t.Errorf("uuid = %q", got.Text)
	}
	again := resolve(t, r, "{{uuid}}")
	if got.Text == again.Text {
		t.Error("uuid should differ across evaluations")
	}
}

func TestRandomDigits(t *testing.T) {
	r := New()
	for i := 0; i < 20; i++ {
		got := resolve(t, r, "{{random:4}}")
		if len(got.Text) != 4 {
			t.Fatalf("random:4 length = %d (%q)", len(got.Text), got.Text)
		}
		for _, c := range got.Text {
			if c < '0' || c > '9' {
				t.Fatalf("non-digit in random output: %q", got.Text)
			}
		}
	}
}

func TestRandomInvalidCount(t *testing.T) {
	r := New()
	for _, arg := range []string{"0", "-3", "x"} {
		got := resolve(t, r, "[{{random:"+arg+"}}]")
		if got.Text != "[]" {
			t.Errorf("random:%s should be empty, got %q", arg, got.Text)
		}
	}
}

func TestCursorOffset(t *testing.T) {
	r := New()
	got := resolve(t, r, "Hello $|$ World")
	if got.Text != "Hello  World" {
		t.Errorf("text = %q", got.Text)
	}
	if !got.HasCursor() || got.CursorOffset != 6 {
		t.Errorf("cursor offset = %d, want 6", got.CursorOffset)
	}
}

func TestCursorOffsetCountsRunes(t *testing.T) {
	r := New()
	got := resolve(t, r, "é$|$ü")
	if got.CursorOffset != 1 {
		t.Errorf("offset should count runes, got %d", got.CursorOffset)
	}
}

func TestStrftimeLayout(t *testing.T) {
	cases := []struct {
		pattern string
		layout  string
	}{
		{"%Y-%m-%d", "2006-01-02"},
		{"%d/%m/%y", "02/01/06"},
		{"%H:%M:%S", "15:04:05"},
		{"%A %B", "Monday January"},
		{"100%%", "100%"},
	}
	for _, tc := range cases {
		got, err := strftimeLayout(tc.pattern)
		if err != nil {
			t.Errorf("strftimeLayout(%q) error: %v", tc.pattern, err)
			continue
		}
		if got != tc.layout {
			t.Errorf("strftimeLayout(%q) = %q, want %q", tc.pattern, got, tc.layout)
		}
	}

	if _, err := strftimeLayout("%Q"); err == nil {
		t.Error("expected error for unsupported code")
	}
	if _, err := strftimeLayout("trailing%"); err == nil {
		t.Error("expected error for trailing percent")
	}
}
