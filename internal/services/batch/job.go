package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wensia/callscribe/internal/asr"
	"github.com/wensia/callscribe/internal/models"
	"github.com/wensia/callscribe/internal/services/transcription"
)

// LockRenewer is the narrow capability the scheduling layer hands the job to
// keep its distributed lock alive across a long run. Extension is
// best-effort: a false return is logged, never fatal, because the
// scheduler's own lock-loss detection is the authoritative safety net.
type LockRenewer interface {
	Extend(ctx context.Context) bool
}

// NopRenewer satisfies LockRenewer for callers without a lock to renew
type NopRenewer struct{}

// Extend always succeeds
func (NopRenewer) Extend(context.Context) bool { return true }

// RecordError is one sampled per-record failure in the final report
type RecordError struct {
	RecordID  uint   `json:"record_id"`
	ErrorType string `json:"error_type"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
}

// Error classification tags for RecordError.ErrorType
const (
	errorTypeSubmit  = "submit"
	errorTypeTimeout = "poll_timeout"
	errorTypeVendor  = "vendor_failed"
	errorTypeSystem  = "system"
)

// Report is the final outcome of one batch run
type Report struct {
	Status      string        `json:"status"` // completed | failed
	Message     string        `json:"message"`
	Total       int64         `json:"total"`
	Success     int           `json:"success"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Vendor      string        `json:"vendor"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Concurrency int           `json:"concurrency"`
	Errors      []RecordError `json:"errors,omitempty"`
}

// RunModel converts the report into its persisted form
func (r *Report) RunModel() *models.BatchRun {
	errs := make(models.RunErrorSample, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, models.RunError{
			RecordID:  e.RecordID,
			ErrorType: e.ErrorType,
			Code:      e.Code,
			Message:   e.Message,
		})
	}

	return &models.BatchRun{
		Vendor:      r.Vendor,
		Status:      r.Status,
		Message:     r.Message,
		Total:       r.Total,
		Success:     r.Success,
		Failed:      r.Failed,
		Skipped:     r.Skipped,
		Concurrency: r.Concurrency,
		WindowStart: r.StartTime,
		WindowEnd:   r.EndTime,
		Errors:      errs,
	}
}

// Job runs one batch transcription pass over the call recording store
type Job struct {
	service transcription.Service
	repo    transcription.Repository
	params  Params
	renewer LockRenewer

	mu      sync.Mutex
	success int
	failed  int
	skipped int
	errs    []RecordError
}

// NewJob creates a batch transcription job. A nil renewer disables lock
// renewal.
func NewJob(service transcription.Service, repo transcription.Repository, params Params, renewer LockRenewer) *Job {
	if renewer == nil {
		renewer = NopRenewer{}
	}
	params.normalize()
	return &Job{
		service: service,
		repo:    repo,
		params:  params,
		renewer: renewer,
	}
}

// Run executes the batch: candidate selection, paged fetch,
// bounded-concurrency fan-out, aggregate statistics and lock renewal.
// Config and credential errors abort before any record is touched; every
// per-record error is contained at the record boundary.
func (j *Job) Run(ctx context.Context) (*Report, error) {
	start, end, err := j.params.Window()
	if err != nil {
		return &Report{Status: "failed", Message: err.Error()}, err
	}

	client, cred, err := j.service.ClientForConfig(ctx, j.params.ASRConfigID)
	if err != nil {
		return &Report{Status: "failed", Message: err.Error(), StartTime: start, EndTime: end}, err
	}

	wait := asr.WaitConfig{
		PollInterval: j.params.PollInterval,
		Timeout:      j.params.WaitTimeout,
	}
	wait = waitDefaults(wait)

	concurrency := j.params.Concurrency
	if concurrency <= 0 {
		concurrency = concurrencyFor(cred.Provider, j.params.QPS, wait.PollInterval)
	}

	opts := asr.Options{
		ChannelNum:       j.params.ChannelNum,
		SpeakerCount:     2,
		CorrectTableName: j.params.CorrectTableName,
		QPS:              j.params.QPS,
	}

	filter := transcription.CandidateFilter{
		StartTime:    start,
		EndTime:      end,
		SkipExisting: j.params.SkipExisting,
		MinDuration:  j.params.MinDuration,
	}

	total, err := j.repo.CountCandidates(ctx, filter)
	if err != nil {
		return &Report{Status: "failed", Message: err.Error(), Vendor: cred.Provider, StartTime: start, EndTime: end}, err
	}

	log.Printf("[DEBUG] Batch run: %d candidates in [%s, %s], vendor %s, concurrency %d",
		total, start.Format(timeLayoutMinute), end.Format(timeLayoutMinute), cred.Provider, concurrency)

	subBatchSize := j.params.BatchSize
	if concurrency > subBatchSize {
		subBatchSize = concurrency
	}

	offset := 0
	processed := 0

pageLoop:
	for {
		if j.capReached() {
			break
		}

		page, err := j.repo.ListCandidates(ctx, filter, offset, j.params.PageSize)
		if err != nil {
			return j.report("failed", fmt.Sprintf("page fetch failed: %v", err), total, cred.Provider, start, end, concurrency), err
		}
		if len(page) == 0 {
			break
		}

		// On skip-existing runs every record that reaches a terminal status
		// drops out of the candidate filter, shifting the remaining rows left
		// underneath the offset. Advancing by the full page length would leap
		// over as many still-eligible records as this page completed, so the
		// offset only moves past records the sub-batches left non-terminal.
		remained := 0

		for batchStart := 0; batchStart < len(page); batchStart += subBatchSize {
			if j.capReached() {
				break pageLoop
			}
			if err := ctx.Err(); err != nil {
				return j.report("failed", "cancelled", total, cred.Provider, start, end, concurrency), err
			}

			batchEnd := batchStart + subBatchSize
			if batchEnd > len(page) {
				batchEnd = len(page)
			}

			remained += j.runSubBatch(ctx, page[batchStart:batchEnd], client, opts, wait, concurrency)
			processed += batchEnd - batchStart

			success, failed, skipped := j.counts()
			log.Printf("[DEBUG] Batch progress: %d/%d (success %d, failed %d, skipped %d)",
				processed, total, success, failed, skipped)

			if !j.renewer.Extend(ctx) {
				log.Printf("[WARNING] Lock renewal failed; continuing, scheduler owns lock-loss handling")
			}
		}

		if j.params.SkipExisting {
			offset += remained
		} else {
			offset += len(page)
		}

		// A short page means the candidate set is exhausted
		if len(page) < j.params.PageSize {
			break
		}
	}

	report := j.report("completed", "", total, cred.Provider, start, end, concurrency)
	report.Message = fmt.Sprintf("transcribed %d/%d records (failed %d, skipped %d)",
		report.Success, report.Total, report.Failed, report.Skipped)
	log.Printf("[DEBUG] Batch run finished: %s", report.Message)
	return report, nil
}

func waitDefaults(cfg asr.WaitConfig) asr.WaitConfig {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = asr.DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = asr.DefaultWaitTimeout
	}
	return cfg
}

// runSubBatch fans the records out under a semaphore of `concurrency` slots
// and returns how many records stayed non-terminal (still in the candidate
// set). Every exit path of a record releases its slot.
func (j *Job) runSubBatch(ctx context.Context, records []*models.CallRecording, client asr.Client, opts asr.Options, wait asr.WaitConfig, concurrency int) int {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var remained int32

	for _, record := range records {
		if j.capReached() {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(rec *models.CallRecording) {
			defer wg.Done()
			defer func() { <-sem }()
			if !j.processRecord(ctx, rec, client, opts, wait) {
				atomic.AddInt32(&remained, 1)
			}
		}(record)
	}

	wg.Wait()
	return int(remained)
}

// processRecord runs one record end to end and classifies the outcome. The
// return reports whether the record reached a terminal status; failures leave
// the record's status unchanged so the next run retries it.
func (j *Job) processRecord(ctx context.Context, record *models.CallRecording, client asr.Client, opts asr.Options, wait asr.WaitConfig) bool {
	segments, err := j.service.TranscribeRecord(ctx, record, client, opts, j.params.SpeakerOverrides, wait)

	switch {
	case err == nil:
		if err := j.service.UpdateRecordTranscript(ctx, record.ID, segments, models.TranscriptStatusCompleted); err != nil {
			log.Printf("[ERROR] Recording %d: persisting transcript: %v", record.ID, err)
			j.addFailure(record.ID, errorTypeSystem, "", err.Error())
			return false
		}
		j.addSuccess()
		return true

	case errors.Is(err, transcription.ErrNoAudioURL):
		// Left untouched: eligible again if re-ingestion adds a URL
		j.addSkipped()
		return false

	case errors.Is(err, transcription.ErrEmptyResult):
		if err := j.service.UpdateRecordTranscript(ctx, record.ID, nil, models.TranscriptStatusEmpty); err != nil {
			log.Printf("[ERROR] Recording %d: persisting empty status: %v", record.ID, err)
			j.addFailure(record.ID, errorTypeSystem, "", err.Error())
			return false
		}
		j.addSkipped()
		return true

	default:
		errType, code := classifyError(err)
		log.Printf("[ERROR] Recording %d: %s: %v", record.ID, errType, err)
		j.addFailure(record.ID, errType, code, err.Error())
		return false
	}
}

// classifyError maps a per-record error onto the report taxonomy. Poll
// timeouts are reported distinctly from vendor failures for tuning.
func classifyError(err error) (errType, code string) {
	var submitErr *asr.SubmitError
	var taskErr *asr.TaskFailedError

	switch {
	case errors.Is(err, asr.ErrPollTimeout):
		return errorTypeTimeout, ""
	case errors.As(err, &submitErr):
		return errorTypeSubmit, submitErr.Code
	case errors.As(err, &taskErr):
		return errorTypeVendor, taskErr.Code
	default:
		return errorTypeSystem, ""
	}
}

func (j *Job) addSuccess() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.success++
}

func (j *Job) addSkipped() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.skipped++
}

func (j *Job) addFailure(recordID uint, errType, code, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failed++
	if len(j.errs) < errorSampleLimit {
		j.errs = append(j.errs, RecordError{
			RecordID:  recordID,
			ErrorType: errType,
			Code:      code,
			Message:   message,
		})
	}
}

// capReached reports whether the cumulative success count hit MaxRecords.
// In-flight work drains, but no further sub-batches or pages start.
func (j *Job) capReached() bool {
	if j.params.MaxRecords <= 0 {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.success >= j.params.MaxRecords
}

func (j *Job) counts() (success, failed, skipped int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.success, j.failed, j.skipped
}

func (j *Job) report(status, message string, total int64, vendor string, start, end time.Time, concurrency int) *Report {
	success, failed, skipped := j.counts()
	j.mu.Lock()
	errs := make([]RecordError, len(j.errs))
	copy(errs, j.errs)
	j.mu.Unlock()

	return &Report{
		Status:      status,
		Message:     message,
		Total:       total,
		Success:     success,
		Failed:      failed,
		Skipped:     skipped,
		Vendor:      vendor,
		StartTime:   start,
		EndTime:     end,
		Concurrency: concurrency,
		Errors:      errs,
	}
}
