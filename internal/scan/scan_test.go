package scan

import (
	"strings"
	"testing"

	"logtriage/internal/format"
	"logtriage/internal/model"
)

func TestPrefilterApplicability(t *testing.T) {
	tests := []struct {
		name    string
		dialect format.Name
		wanted  model.LevelSet
		want    bool
	}{
		{"elevated levels on logfmt", format.Logfmt, model.NewLevelSet(model.LevelError, model.LevelWarning), true},
		{"elevated levels on access", format.Access, model.NewLevelSet(model.LevelCritical), true},
		{"all three elevated on loose", format.Loose, model.NewLevelSet(model.LevelWarning, model.LevelError, model.LevelCritical), true},
		{"cef never prefilters", format.CEF, model.NewLevelSet(model.LevelError), false},
		{"info disables", format.Bracket, model.NewLevelSet(model.LevelError, model.LevelInfo), false},
		{"debug disables", format.JSONL, model.NewLevelSet(model.LevelDebug), false},
		{"unknown disables", format.Loose, model.NewLevelSet(model.LevelError, model.LevelUnknown), false},
		{"empty set disables", format.Bracket, model.NewLevelSet(), false},
		{"nil set disables", format.Bracket, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Prefilter(tt.dialect, tt.wanted)
			if (got != nil) != tt.want {
				t.Errorf("Prefilter(%s, %v) non-nil = %v, want %v", tt.dialect, tt.wanted.Slice(), got != nil, tt.want)
			}
		})
	}
}

func TestPrefilterAccess(t *testing.T) {
	wanted := model.NewLevelSet(model.LevelWarning, model.LevelError, model.LevelCritical)
	match := Prefilter(format.Access, wanted)
	if match == nil {
		t.Fatal("Prefilter returned nil for access dialect")
	}

	tests := []struct {
		name string
		line string
		want bool
	}{
		{"404 is a warning", `127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /x HTTP/1.0" 404 2326`, true},
		{"500 is an error", `10.0.0.5 - - [30/Dec/2024:10:00:00 +0000] "POST /api HTTP/1.1" 500 12`, true},
		{"200 is not wanted", `10.0.0.5 - - [30/Dec/2024:10:00:00 +0000] "GET / HTTP/1.1" 200 512`, false},
		{"non-access shape", "2025-01-01 [ERROR] not an access line", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := match(tt.line); got != tt.want {
				t.Errorf("match(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestPrefilterSyslog(t *testing.T) {
	wanted := model.NewLevelSet(model.LevelError, model.LevelCritical)
	match := Prefilter(format.Syslog, wanted)
	if match == nil {
		t.Fatal("Prefilter returned nil for syslog dialect")
	}

	tests := []struct {
		name string
		line string
		want bool
	}{
		{"severity 2 wanted", "<34>1 2024-12-30T08:00:00Z host app - - - down", true},
		{"severity 3 wanted", "<11>1 2024-12-30T08:00:00Z host app - - - broken", true},
		{"severity 4 not wanted", "<12>1 2024-12-30T08:00:00Z host app - - - slow", false},
		{"severity 6 not wanted", "<14>1 2024-12-30T08:00:00Z host app - - - fine", false},
		{"no pri prefix", "Dec 30 08:00:00 host app: message", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := match(tt.line); got != tt.want {
				t.Errorf("match(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestPrefilterKeywords(t *testing.T) {
	tests := []struct {
		name   string
		wanted model.LevelSet
		line   string
		want   bool
	}{
		{
			"short alias covers full word",
			model.NewLevelSet(model.LevelWarning),
			`level=warn msg="retrying upstream"`,
			true,
		},
		{
			"case-insensitive",
			model.NewLevelSet(model.LevelCritical),
			"fatal disk failure on /dev/sda",
			true,
		},
		{
			"quiet line skipped",
			model.NewLevelSet(model.LevelError),
			"2025-01-01 12:00:00 [INFO] started worker 3",
			false,
		},
		{
			"message mention keeps the line",
			model.NewLevelSet(model.LevelError),
			`level=info msg="error budget consumed"`,
			true,
		},
		{
			"traceback keyword",
			model.NewLevelSet(model.LevelError),
			"Traceback (most recent call last):",
			true,
		},
		{
			"timeout maps to warning",
			model.NewLevelSet(model.LevelWarning),
			"request to shard-7 hit timeout after 30s",
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := Prefilter(format.Logfmt, tt.wanted)
			if match == nil {
				t.Fatal("Prefilter returned nil")
			}
			if got := match(tt.line); got != tt.want {
				t.Errorf("match(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestScanTokens(t *testing.T) {
	input := strings.Join([]string{
		"2025-01-01 12:00:00 [ERROR] write failed",
		"2025-01-01 12:00:01 [INFO] retry scheduled ok",
		"2025-01-01 12:00:02 [DEBUG] payload dumped",
		"job 12 FATAL and ERROR in one line",
		"plain chatter with nothing in it",
		`{ "level":"warning", "msg":"disk 80% full"}`,
	}, "\n")

	wanted := model.NewLevelSet(model.LevelWarning, model.LevelError, model.LevelCritical)
	hits, err := Scan(strings.NewReader(input), format.Bracket, wanted)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	want := []model.Hit{
		{LineNo: 1, Level: model.LevelError, Raw: "2025-01-01 12:00:00 [ERROR] write failed"},
		{LineNo: 2, Level: model.LevelWarning, Raw: "2025-01-01 12:00:01 [INFO] retry scheduled ok"},
		{LineNo: 4, Level: model.LevelCritical, Raw: "job 12 FATAL and ERROR in one line"},
		{LineNo: 6, Level: model.LevelWarning, Raw: `{ "level":"warning", "msg":"disk 80% full"}`},
	}
	if len(hits) != len(want) {
		t.Fatalf("Scan() returned %d hits, want %d: %+v", len(hits), len(want), hits)
	}
	for i, h := range hits {
		if h != want[i] {
			t.Errorf("hit[%d] = %+v, want %+v", i, h, want[i])
		}
	}
}

func TestScanSeverityPriority(t *testing.T) {
	// A line carrying both FATAL and ERROR tokens reports the higher
	// severity.
	hits, err := Scan(strings.NewReader("job FATAL after ERROR cascade"), format.Loose, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Level != model.LevelCritical {
		t.Fatalf("Scan() = %+v, want one CRITICAL hit", hits)
	}
}

func TestScanNilWantedMatchesAll(t *testing.T) {
	input := "2025-01-01 [DEBUG] verbose\n2025-01-01 [INFO] fine\n2025-01-01 [ERROR] bad"
	hits, err := Scan(strings.NewReader(input), format.Bracket, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("Scan() returned %d hits, want 3: %+v", len(hits), hits)
	}
	wantLevels := []model.Level{model.LevelDebug, model.LevelInfo, model.LevelError}
	for i, h := range hits {
		if h.Level != wantLevels[i] {
			t.Errorf("hit[%d].Level = %s, want %s", i, h.Level, wantLevels[i])
		}
	}
}

func TestScanAccess(t *testing.T) {
	input := strings.Join([]string{
		`10.0.0.5 - - [30/Dec/2024:10:00:00 +0000] "GET / HTTP/1.1" 200 512`,
		`10.0.0.5 - - [30/Dec/2024:10:00:01 +0000] "GET /missing HTTP/1.1" 404 120`,
		`10.0.0.5 - - [30/Dec/2024:10:00:02 +0000] "POST /api HTTP/1.1" 503 17`,
		"not an access log line with ERROR word",
	}, "\n")

	wanted := model.NewLevelSet(model.LevelWarning, model.LevelError, model.LevelCritical)
	hits, err := Scan(strings.NewReader(input), format.Access, wanted)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	// The token path is not consulted for access files, so line 4 stays out.
	want := []model.Hit{
		{LineNo: 2, Level: model.LevelWarning, Raw: `10.0.0.5 - - [30/Dec/2024:10:00:01 +0000] "GET /missing HTTP/1.1" 404 120`},
		{LineNo: 3, Level: model.LevelError, Raw: `10.0.0.5 - - [30/Dec/2024:10:00:02 +0000] "POST /api HTTP/1.1" 503 17`},
	}
	if len(hits) != len(want) {
		t.Fatalf("Scan() returned %d hits, want %d: %+v", len(hits), len(want), hits)
	}
	for i, h := range hits {
		if h != want[i] {
			t.Errorf("hit[%d] = %+v, want %+v", i, h, want[i])
		}
	}
}

func TestScanSyslog(t *testing.T) {
	input := strings.Join([]string{
		"<34>1 2024-12-30T08:00:00Z host app - - - emergency stop",
		"<165>1 2024-12-30T08:00:01Z host app - - - routine note",
		"<12>1 2024-12-30T08:00:02Z host app - - - degraded",
	}, "\n")

	wanted := model.NewLevelSet(model.LevelWarning, model.LevelError, model.LevelCritical)
	hits, err := Scan(strings.NewReader(input), format.Syslog, wanted)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(hits) != 2 {
		t.Fatalf("Scan() returned %d hits, want 2: %+v", len(hits), hits)
	}
	if hits[0].LineNo != 1 || hits[0].Level != model.LevelCritical {
		t.Errorf("hit[0] = %+v, want line 1 CRITICAL", hits[0])
	}
	if hits[1].LineNo != 3 || hits[1].Level != model.LevelWarning {
		t.Errorf("hit[1] = %+v, want line 3 WARNING", hits[1])
	}
}

func TestScanConservativeTokens(t *testing.T) {
	// The scan's framed tokens skip spellings the prefilter would keep:
	// the scan is a display heuristic, the prefilter a correctness
	// superset.
	line := "warn: disk filling up"
	hits, err := Scan(strings.NewReader(line), format.Loose, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("Scan() = %+v, want no hits for unframed token", hits)
	}

	match := Prefilter(format.Loose, model.NewLevelSet(model.LevelWarning))
	if match == nil {
		t.Fatal("Prefilter returned nil")
	}
	if !match(line) {
		t.Error("prefilter should keep a line containing WARN")
	}
}
