package transcription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/wensia/callscribe/internal/asr"
	"github.com/wensia/callscribe/internal/models"
	"github.com/wensia/callscribe/internal/services/credentials"
)

// Skip signals. Neither is a fault: a record without a playable URL stays
// untouched and becomes eligible again if re-ingestion adds one; an empty
// result is persisted as status=empty so default runs stop retrying it.
var (
	ErrNoAudioURL  = errors.New("record has no playable audio URL")
	ErrEmptyResult = errors.New("vendor returned zero usable segments")
)

type service struct {
	repo       Repository
	creds      credentials.Repository
	httpClient *http.Client
}

// NewService creates the per-record transcription orchestrator. The HTTP
// client is the shared connection pool all vendor clients run on.
func NewService(repo Repository, creds credentials.Repository, httpClient *http.Client) Service {
	if httpClient == nil {
		httpClient = asr.NewHTTPClient(0)
	}
	return &service{
		repo:       repo,
		creds:      creds,
		httpClient: httpClient,
	}
}

func (s *service) ClientForConfig(ctx context.Context, configID uint) (asr.Client, *models.ASRCredential, error) {
	cred, err := s.creds.GetByID(ctx, configID)
	if err != nil {
		return nil, nil, err
	}

	client, err := asr.NewClient(cred.Provider, cred.Credentials, s.httpClient)
	if err != nil {
		return nil, nil, fmt.Errorf("building %s client for profile %d: %w", cred.Provider, configID, err)
	}

	return client, cred, nil
}

// ExtractRecordURL finds the playable audio URL in a raw ingestion payload,
// trying the known alias keys in order. Absence is a normal outcome.
func ExtractRecordURL(payload models.RawPayload) (string, bool) {
	for _, key := range URLAliasKeys {
		value, ok := payload[key]
		if !ok {
			continue
		}
		str, ok := value.(string)
		if !ok {
			continue
		}
		str = strings.TrimSpace(str)
		if str != "" && strings.HasPrefix(str, "http") {
			return str, true
		}
	}
	return "", false
}

func (s *service) TranscribeRecord(ctx context.Context, record *models.CallRecording, client asr.Client, opts asr.Options, overrides asr.SpeakerOverrides, wait asr.WaitConfig) (models.TranscriptSegments, error) {
	audioURL, ok := ExtractRecordURL(record.RawPayload)
	if !ok {
		return nil, ErrNoAudioURL
	}

	segments, err := asr.Transcribe(ctx, client, audioURL, opts, overrides, wait)
	if err != nil {
		// Propagate with record context so the batch layer can classify and
		// report it; the record stays eligible for retry.
		return nil, fmt.Errorf("recording %d: %w", record.ID, err)
	}

	if len(segments) == 0 {
		log.Printf("[DEBUG] Recording %d: vendor succeeded with zero segments", record.ID)
		return nil, ErrEmptyResult
	}

	return segments, nil
}

func (s *service) UpdateRecordTranscript(ctx context.Context, recordID uint, segments models.TranscriptSegments, status string) error {
	return s.repo.UpdateTranscript(ctx, recordID, segments, status)
}
