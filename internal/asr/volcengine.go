package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wensia/callscribe/internal/models"
)

const (
	volcengineSubmitURL  = "https://openspeech.bytedance.com/api/v3/auc/bigasr/submit"
	volcengineQueryURL   = "https://openspeech.bytedance.com/api/v3/auc/bigasr/query"
	volcengineResourceID = "volc.bigasr.auc"

	// Numeric status envelope codes carried in the X-Api-Status-Code header
	volcengineCodeSuccess    = "20000000"
	volcengineCodeProcessing = "20000001"
	volcengineCodeQueued     = "20000002"

	// DefaultVolcengineQPS is the per-account rate budget shared by submit
	// and poll requests
	DefaultVolcengineQPS = 20
)

// VolcengineClient drives the Volcengine bigasr batch API. Auth is static
// headers; the submit request id doubles as the job handle for queries.
// Submit and poll share one QPS budget, enforced with a rate limiter.
type VolcengineClient struct {
	creds      VolcengineCredentials
	httpClient *http.Client
	limiter    *rate.Limiter
	submitURL  string
	queryURL   string
	requestID  func() string
}

// NewVolcengineClient creates a Volcengine ASR client on the shared HTTP pool
func NewVolcengineClient(creds VolcengineCredentials, httpClient *http.Client) *VolcengineClient {
	qps := creds.QPS
	if qps <= 0 {
		qps = DefaultVolcengineQPS
	}
	return &VolcengineClient{
		creds:      creds,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(qps), qps),
		submitURL:  volcengineSubmitURL,
		queryURL:   volcengineQueryURL,
		requestID:  func() string { return uuid.NewString() },
	}
}

// Provider returns the provider tag
func (c *VolcengineClient) Provider() string {
	return models.ProviderVolcengine
}

// QPS returns the effective rate budget this client runs under
func (c *VolcengineClient) QPS() int {
	return int(c.limiter.Limit())
}

// doRequest posts one authenticated request and returns the status code
// header, message header and body
func (c *VolcengineClient) doRequest(ctx context.Context, endpoint, requestID string, payload interface{}) (string, string, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", "", nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-App-Key", c.creds.AppID)
	req.Header.Set("X-Api-Access-Key", c.creds.AccessToken)
	req.Header.Set("X-Api-Resource-Id", volcengineResourceID)
	req.Header.Set("X-Api-Request-Id", requestID)
	req.Header.Set("X-Api-Sequence", "-1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return "", "", nil, fmt.Errorf("reading response: %w", err)
	}

	statusCode := resp.Header.Get("X-Api-Status-Code")
	message := resp.Header.Get("X-Api-Message")
	return statusCode, message, respBody.Bytes(), nil
}

// audioFormatFromURL guesses the container format from the URL path,
// defaulting to wav for extension-less telephony recording links
func audioFormatFromURL(audioURL string) string {
	parsed, err := url.Parse(audioURL)
	if err != nil {
		return "wav"
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))
	switch ext {
	case "mp3", "wav", "ogg", "raw", "pcm":
		return ext
	default:
		return "wav"
	}
}

// Submit creates a bigasr task. The generated request id is the job handle;
// queries must present the same id. Dual-channel audio uses vendor channel
// split, mono audio speaker diarization.
func (c *VolcengineClient) Submit(ctx context.Context, audioURL string, opts Options) (string, error) {
	requestID := c.requestID()

	request := map[string]interface{}{
		"model_name":      "bigmodel",
		"enable_itn":      true,
		"enable_punc":     true,
		"show_utterances": true,
	}
	if opts.ChannelNum == 2 {
		request["enable_channel_split"] = true
	} else {
		request["enable_speaker_info"] = true
	}
	if opts.CorrectTableName != "" {
		request["corpus"] = map[string]interface{}{
			"correct_table_name": opts.CorrectTableName,
		}
	}

	payload := map[string]interface{}{
		"user": map[string]interface{}{
			"uid": c.creds.AppID,
		},
		"audio": map[string]interface{}{
			"url":    audioURL,
			"format": audioFormatFromURL(audioURL),
		},
		"request": request,
	}

	statusCode, message, _, err := c.doRequest(ctx, c.submitURL, requestID, payload)
	if err != nil {
		return "", NewSubmitError(c.Provider(), "", err.Error(), err)
	}
	if statusCode != volcengineCodeSuccess {
		return "", NewSubmitError(c.Provider(), statusCode, message, nil)
	}

	return requestID, nil
}

// Poll reduces the numeric status envelope to the shared lifecycle: success
// and the two documented in-progress codes map directly; every other code is
// a terminal failure per the vendor contract.
func (c *VolcengineClient) Poll(ctx context.Context, taskID string) (*TaskStatus, error) {
	statusCode, message, body, err := c.doRequest(ctx, c.queryURL, taskID, map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("polling volcengine task %s: %w", taskID, err)
	}

	switch statusCode {
	case volcengineCodeSuccess:
		return &TaskStatus{State: TaskSuccess, RawResult: string(body)}, nil
	case volcengineCodeProcessing, volcengineCodeQueued:
		return &TaskStatus{State: TaskRunning}, nil
	default:
		return &TaskStatus{State: TaskFailed, Code: statusCode, Message: message}, nil
	}
}

type volcengineUtterance struct {
	Text      string `json:"text"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Additions struct {
		ChannelID string `json:"channel_id"`
		Speaker   string `json:"speaker"`
		Event     string `json:"event"`
	} `json:"additions"`
}

type volcengineResult struct {
	Result struct {
		Text       string                `json:"text"`
		Utterances []volcengineUtterance `json:"utterances"`
	} `json:"result"`
}

// volcengineSpeaker maps the vendor's channel numbering to roles. Channel 1
// is the customer side and channel 2 the staff side, reversed relative to
// the other vendors. This mapping is part of the external contract and must
// not be normalized.
func volcengineSpeaker(raw string, overrides SpeakerOverrides) models.SpeakerRole {
	if role, ok := overrides[raw]; ok {
		return role
	}
	if raw == "2" {
		return models.SpeakerStaff
	}
	return models.SpeakerCustomer
}

// Parse decodes the utterance array. Channel ids come from additions; tasks
// run with speaker diarization report a speaker id instead.
func (c *VolcengineClient) Parse(rawResult string, overrides SpeakerOverrides) (models.TranscriptSegments, error) {
	var result volcengineResult
	if err := json.Unmarshal([]byte(rawResult), &result); err != nil {
		return nil, fmt.Errorf("decoding volcengine result: %w", err)
	}

	segments := make(models.TranscriptSegments, 0, len(result.Result.Utterances))
	for _, u := range result.Result.Utterances {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}

		channel := u.Additions.ChannelID
		if channel == "" {
			channel = u.Additions.Speaker
		}

		segments = append(segments, models.TranscriptSegment{
			StartTime: float64(u.StartTime) / 1000,
			EndTime:   float64(u.EndTime) / 1000,
			Speaker:   volcengineSpeaker(channel, overrides),
			Text:      text,
		})
	}

	segments.SortByStartTime()
	return segments, nil
}
