package format

import (
	"testing"
	"time"

	"logtriage/internal/model"
)

func TestParseISOTimestamp(t *testing.T) {
	want := time.Date(2025, 12, 30, 8, 12, 4, 0, time.UTC)
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{name: "zulu", input: "2025-12-30T08:12:04Z", want: want, ok: true},
		{name: "naive assumed utc", input: "2025-12-30T08:12:04", want: want, ok: true},
		{name: "space separator", input: "2025-12-30 08:12:04", want: want, ok: true},
		{name: "offset normalized", input: "2025-12-30T09:12:04+01:00", want: want, ok: true},
		{name: "date only", input: "2025-12-30", want: time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "fractional", input: "2025-12-30T08:12:04.500Z", want: want.Add(500 * time.Millisecond), ok: true},
		{name: "garbage", input: "yesterday", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseISOTimestamp(tt.input)
			if ok != tt.ok {
				t.Fatalf("parseISOTimestamp(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("parseISOTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelFromWord(t *testing.T) {
	tests := []struct {
		input string
		want  model.Level
	}{
		{"error", model.LevelError},
		{"ERR", model.LevelError},
		{"warn", model.LevelWarning},
		{"WARNING", model.LevelWarning},
		{"fatal", model.LevelCritical},
		{"crit", model.LevelCritical},
		{"severe", model.LevelCritical},
		{"info", model.LevelInfo},
		{"trace", model.LevelUnknown}, // trace is a loose keyword, not a level word
		{"notice", model.LevelUnknown},
		{"", model.LevelUnknown},
		{"  debug  ", model.LevelDebug},
	}
	for _, tt := range tests {
		if got := levelFromWord(tt.input); got != tt.want {
			t.Errorf("levelFromWord(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestExtractCommonFields(t *testing.T) {
	t.Run("alias fallthrough on bad values", func(t *testing.T) {
		ts, level, msg := extractCommonFields(map[string]string{
			"time":      "not a time",
			"ts":        "2025-12-30T08:12:04Z",
			"level":     "notice",
			"severity":  "error",
			"detail":    "fallback detail",
			"@what":     "x",
			"UNRELATED": "y",
		})
		if ts == nil || !ts.Equal(time.Date(2025, 12, 30, 8, 12, 4, 0, time.UTC)) {
			t.Errorf("ts = %v, want fallthrough to the ts key", ts)
		}
		if level != model.LevelError {
			t.Errorf("level = %v, want fallthrough past unrecognized word", level)
		}
		if msg != "fallback detail" {
			t.Errorf("message = %q, want %q", msg, "fallback detail")
		}
	})

	t.Run("keys matched case-insensitively", func(t *testing.T) {
		_, level, msg := extractCommonFields(map[string]string{
			"Level":   "warn",
			"Message": "mixed case keys",
		})
		if level != model.LevelWarning {
			t.Errorf("level = %v, want WARNING", level)
		}
		if msg != "mixed case keys" {
			t.Errorf("message = %q", msg)
		}
	})

	t.Run("empty fields", func(t *testing.T) {
		ts, level, msg := extractCommonFields(map[string]string{})
		if ts != nil || level != model.LevelUnknown || msg != "" {
			t.Errorf("got %v %v %q, want zero values", ts, level, msg)
		}
	})
}

func TestSplitQuoted(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "plain tokens",
			input: "a=1 b=2",
			want:  []string{"a=1", "b=2"},
		},
		{
			name:  "double quoted value",
			input: `msg="boom happened" level=error`,
			want:  []string{"msg=boom happened", "level=error"},
		},
		{
			name:  "single quoted value",
			input: `msg='it broke' x=1`,
			want:  []string{"msg=it broke", "x=1"},
		},
		{
			name:  "escaped quote inside double quotes",
			input: `msg="say \"hi\""`,
			want:  []string{`msg=say "hi"`},
		},
		{
			name:  "tabs separate tokens",
			input: "a=1\tb=2",
			want:  []string{"a=1", "b=2"},
		},
		{name: "unterminated double quote", input: `msg="oops`, wantErr: true},
		{name: "unterminated single quote", input: `msg='oops`, wantErr: true},
		{name: "empty line", input: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitQuoted(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitQuoted(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("splitQuoted(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
