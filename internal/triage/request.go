package triage

import (
	"fmt"

	"logtriage/internal/model"
	"logtriage/internal/review"
	"logtriage/internal/timewindow"
)

// Request is one triage call. Zero values mean absent. Time selectors
// follow the resolver's precedence: calendar selectors, then lookbacks,
// then explicit bounds, then a 24h default.
type Request struct {
	LogPath string `json:"log_path"`

	Since string `json:"since,omitempty"`
	Until string `json:"until,omitempty"`
	Date  string `json:"date,omitempty"`
	Hour  string `json:"hour,omitempty"`
	Week  string `json:"week,omitempty"`
	Month string `json:"month,omitempty"`
	Year  string `json:"year,omitempty"`

	DaysLookback  *int `json:"days_lookback,omitempty"`
	HoursLookback *int `json:"hours_lookback,omitempty"`

	// Levels names the identified severity set, case-insensitive. Empty
	// means WARNING and ERROR, or WARNING, ERROR and CRITICAL when AI
	// review is requested.
	Levels []string `json:"levels,omitempty"`

	// IncludeAllLevels keeps entries of every severity. Mutually
	// exclusive with IncludeAIReview: with nothing unclassified there is
	// no residue left to review.
	IncludeAllLevels bool `json:"include_all_levels,omitempty"`

	IncludeAIReview bool   `json:"include_ai_review,omitempty"`
	Contains        string `json:"contains,omitempty"`
	IncludeRaw      bool   `json:"include_raw,omitempty"`

	// Limit caps the returned entries, keeping the most recent ones.
	// Zero means unlimited; negative fails validation.
	Limit int `json:"limit,omitempty"`
}

// Response is the triage result. Entries are ordered by line number
// ascending; findings carry their own line references and have no order
// guarantee.
type Response struct {
	Count      int              `json:"count"`
	Entries    []model.Entry    `json:"entries"`
	AIFindings []review.Finding `json:"ai_findings,omitempty"`
}

// ScanResponse is the fast-scan result: byte-level severity hits with no
// full parse behind them.
type ScanResponse struct {
	Format string      `json:"format"`
	Count  int         `json:"count"`
	Hits   []model.Hit `json:"hits"`
}

// ValidationError marks a fault in the request itself, detected before
// any file I/O, as opposed to a resource or pipeline failure. Callers
// match it with errors.As to map it to a client-fault response.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// validate checks the structural request fields. Selector values are
// validated later by the window resolver.
func (r *Request) validate() error {
	if r.LogPath == "" {
		return validationf("log_path is required")
	}
	if r.IncludeAIReview && r.IncludeAllLevels {
		return validationf("include_all_levels cannot be used with include_ai_review")
	}
	if r.Limit < 0 {
		return validationf("limit must be non-negative, got %d", r.Limit)
	}
	return nil
}

// selectors maps the request's time fields onto the window resolver.
func (r *Request) selectors() timewindow.Selectors {
	return timewindow.Selectors{
		Since:         r.Since,
		Until:         r.Until,
		Date:          r.Date,
		Hour:          r.Hour,
		Week:          r.Week,
		Month:         r.Month,
		Year:          r.Year,
		DaysLookback:  r.DaysLookback,
		HoursLookback: r.HoursLookback,
	}
}

// effectiveLevels resolves the identified severity set. Explicit levels
// win; IncludeAllLevels returns a nil set that matches everything; an AI
// review widens the default to include CRITICAL so the residue holds
// only genuinely unclassified lines.
func (r *Request) effectiveLevels() (model.LevelSet, []model.Level, error) {
	if r.IncludeAllLevels {
		return nil, nil, nil
	}

	if len(r.Levels) > 0 {
		parsed := make([]model.Level, 0, len(r.Levels))
		for _, name := range r.Levels {
			level, err := model.ParseLevel(name)
			if err != nil {
				return nil, nil, &ValidationError{Message: err.Error()}
			}
			parsed = append(parsed, level)
		}
		return model.NewLevelSet(parsed...), parsed, nil
	}

	levels := []model.Level{model.LevelWarning, model.LevelError}
	if r.IncludeAIReview {
		levels = append(levels, model.LevelCritical)
	}
	return model.NewLevelSet(levels...), levels, nil
}
