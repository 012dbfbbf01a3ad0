package main

import (
	"testing"

	"logtriage/internal/config"
)

func TestBuildRequest(t *testing.T) {
	cli := &config.CLIOptions{
		LogPath:  "/var/log/app.log",
		Date:     "2025-12-30",
		Days:     -1,
		Hours:    -1,
		Levels:   "ERROR, critical,,",
		Contains: "timeout",
		Limit:    50,
	}

	req := buildRequest(cli)

	if req.LogPath != "/var/log/app.log" {
		t.Errorf("LogPath = %q, want /var/log/app.log", req.LogPath)
	}
	if req.Date != "2025-12-30" {
		t.Errorf("Date = %q, want 2025-12-30", req.Date)
	}
	if req.DaysLookback != nil || req.HoursLookback != nil {
		t.Error("lookbacks set from the -1 sentinel, want unset")
	}
	if len(req.Levels) != 2 || req.Levels[0] != "ERROR" || req.Levels[1] != "critical" {
		t.Errorf("Levels = %v, want [ERROR critical]", req.Levels)
	}
	if req.Contains != "timeout" || req.Limit != 50 {
		t.Errorf("Contains/Limit = %q/%d, want timeout/50", req.Contains, req.Limit)
	}
}

func TestBuildRequest_ZeroLookback(t *testing.T) {
	cli := &config.CLIOptions{
		LogPath: "/var/log/app.log",
		Days:    0,
		Hours:   -1,
	}

	req := buildRequest(cli)

	// An explicit -days 0 is a real selector, not an unset flag.
	if req.DaysLookback == nil || *req.DaysLookback != 0 {
		t.Errorf("DaysLookback = %v, want 0", req.DaysLookback)
	}
	if req.HoursLookback != nil {
		t.Errorf("HoursLookback = %v, want unset", req.HoursLookback)
	}
	if len(req.Levels) != 0 {
		t.Errorf("Levels = %v, want empty", req.Levels)
	}
}
