package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/wensia/callscribe/internal/asr"
	"github.com/wensia/callscribe/internal/models"
)

// Defaults for job invocation parameters
const (
	DefaultBatchSize = 10
	DefaultPageSize  = 500
	DefaultQPS       = 20

	// DefaultConcurrency is the conservative fan-out used for vendors
	// without a published shared rate budget
	DefaultConcurrency = 5

	// Volcengine auto-sizing bounds; submit and poll share one QPS budget,
	// so roughly 40% of it is allotted to concurrent poll loops and the rest
	// reserved for submissions
	volcenginePollShare     = 0.4
	minAutoConcurrency      = 5
	maxAutoConcurrency      = 50
	errorSampleLimit        = 20
	timeLayoutMinute        = "2006-01-02 15:04"
	timeLayoutDate          = "2006-01-02"
	endOfDayHour, endOfDayM = 23, 59
)

// Params are the invocation parameters of one batch transcription run
type Params struct {
	// ASRConfigID selects the credential profile driving this run
	ASRConfigID uint

	// StartTime/EndTime bound the candidate window, "YYYY-MM-DD HH:mm" or
	// date-only (normalized to 00:00 / 23:59)
	StartTime string
	EndTime   string

	// SkipExisting excludes records already completed or empty
	SkipExisting bool

	// MinDuration in seconds filters out very short calls; zero disables
	MinDuration int

	// BatchSize is the sub-batch granularity between lock renewals
	BatchSize int

	// MaxRecords caps cumulative successes; zero means unlimited
	MaxRecords int

	// Concurrency bounds in-flight records; zero means auto-size per vendor
	Concurrency int

	// CorrectTableName names a vendor-side replacement dictionary
	// (Volcengine only)
	CorrectTableName string

	// QPS overrides the vendor rate budget used for auto-sizing
	QPS int

	// PageSize bounds rows per storage round-trip
	PageSize int

	// ChannelNum is the audio channel count handed to the vendor
	ChannelNum int

	// SpeakerOverrides remaps raw vendor channel ids to roles
	SpeakerOverrides asr.SpeakerOverrides

	// PollInterval/WaitTimeout tune the per-record poll loop; zero values
	// take the vendor defaults
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

// DefaultParams returns Params with the standard invocation defaults applied
func DefaultParams() Params {
	return Params{
		SkipExisting: true,
		BatchSize:    DefaultBatchSize,
		PageSize:     DefaultPageSize,
		QPS:          DefaultQPS,
		ChannelNum:   2,
	}
}

func (p *Params) normalize() {
	if p.BatchSize <= 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.QPS <= 0 {
		p.QPS = DefaultQPS
	}
	if p.ChannelNum <= 0 {
		p.ChannelNum = 2
	}
}

// parseWindowTime accepts "YYYY-MM-DD HH:mm" or a bare date. Date-only
// inputs normalize to the start of day, or end of day (23:59) when the value
// is the window end.
func parseWindowTime(value string, isEnd bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("time value is empty")
	}

	if t, err := time.ParseInLocation(timeLayoutMinute, value, time.Local); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation(timeLayoutDate, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want YYYY-MM-DD HH:mm or YYYY-MM-DD)", value)
	}

	if isEnd {
		return t.Add(time.Duration(endOfDayHour)*time.Hour + time.Duration(endOfDayM)*time.Minute), nil
	}
	return t, nil
}

// Window resolves the configured time range
func (p *Params) Window() (start, end time.Time, err error) {
	start, err = parseWindowTime(p.StartTime, false)
	if err != nil {
		return start, end, fmt.Errorf("start_time: %w", err)
	}
	end, err = parseWindowTime(p.EndTime, true)
	if err != nil {
		return start, end, fmt.Errorf("end_time: %w", err)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("end_time %s is before start_time %s", p.EndTime, p.StartTime)
	}
	return start, end, nil
}

// concurrencyFor sizes the worker fan-out when Concurrency is unset. For
// Volcengine the submit and poll traffic of every in-flight record share one
// per-second quota, so the fan-out is derived from the rate budget and poll
// interval; other vendors get a fixed conservative default.
func concurrencyFor(provider string, qps int, pollInterval time.Duration) int {
	if provider != models.ProviderVolcengine {
		return DefaultConcurrency
	}

	c := int(float64(qps) * pollInterval.Seconds() * volcenginePollShare)
	if c < minAutoConcurrency {
		c = minAutoConcurrency
	}
	if c > maxAutoConcurrency {
		c = maxAutoConcurrency
	}
	return c
}
