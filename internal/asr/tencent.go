package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wensia/callscribe/internal/models"
)

const (
	tencentDefaultEndpoint = "https://asr.tencentcloudapi.com"
	tencentAPIVersion      = "2019-06-14"

	tencentActionCreate   = "CreateRecTask"
	tencentActionDescribe = "DescribeTaskStatus"
)

// Tencent task status codes
const (
	tencentStatusWaiting = 0
	tencentStatusDoing   = 1
	tencentStatusSuccess = 2
	tencentStatusFailed  = 3
)

// TencentClient drives the Tencent Cloud recording-file transcription API
// (CreateRecTask / DescribeTaskStatus) with TC3-HMAC-SHA256 signed requests.
type TencentClient struct {
	creds      TencentCredentials
	httpClient *http.Client
	endpoint   string
	now        func() time.Time
}

// NewTencentClient creates a Tencent ASR client on the shared HTTP pool
func NewTencentClient(creds TencentCredentials, httpClient *http.Client) *TencentClient {
	return &TencentClient{
		creds:      creds,
		httpClient: httpClient,
		endpoint:   tencentDefaultEndpoint,
		now:        time.Now,
	}
}

// Provider returns the provider tag
func (c *TencentClient) Provider() string {
	return models.ProviderTencent
}

type tencentEnvelope struct {
	Response struct {
		RequestID string `json:"RequestId"`
		Error     *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error"`
		Data json.RawMessage `json:"Data"`
	} `json:"Response"`
}

type tencentTaskData struct {
	TaskID       uint64                `json:"TaskId"`
	Status       int                   `json:"Status"`
	StatusStr    string                `json:"StatusStr"`
	Result       string                `json:"Result"`
	ResultDetail []tencentSentenceItem `json:"ResultDetail"`
	ErrorMsg     string                `json:"ErrorMsg"`
}

type tencentSentenceItem struct {
	FinalSentence string `json:"FinalSentence"`
	SliceSentence string `json:"SliceSentence"`
	StartMs       int64  `json:"StartMs"`
	EndMs         int64  `json:"EndMs"`
	SpeakerID     int    `json:"SpeakerId"`
}

// doAction posts one signed API action and decodes the response envelope
func (c *TencentClient) doAction(ctx context.Context, action string, params interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request: %w", action, err)
	}

	endpointURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %s: %w", c.endpoint, err)
	}
	host := endpointURL.Host

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", action, err)
	}

	timestamp := c.now().Unix()
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Host", host)
	req.Header.Set("X-TC-Action", action)
	req.Header.Set("X-TC-Version", tencentAPIVersion)
	req.Header.Set("X-TC-Timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("Authorization", tc3Sign(c.creds.SecretID, c.creds.SecretKey, host, action, payload, timestamp))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing %s request: %w", action, err)
	}
	defer resp.Body.Close()

	var envelope tencentEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", action, err)
	}

	if envelope.Response.Error != nil {
		return nil, fmt.Errorf("tencent API error %s: %s",
			envelope.Response.Error.Code, envelope.Response.Error.Message)
	}

	return envelope.Response.Data, nil
}

// Submit creates a recording transcription task. Dual-channel telephony
// audio uses the 8k engine with vendor-side channel separation; mono audio
// uses the 16k engine with algorithmic diarization instead.
func (c *TencentClient) Submit(ctx context.Context, audioURL string, opts Options) (string, error) {
	params := map[string]interface{}{
		"SourceType":    0, // audio fetched by URL
		"Url":           audioURL,
		"ResTextFormat": 1, // sentence-level detail with speaker ids
	}

	if opts.ChannelNum == 2 {
		params["EngineModelType"] = "8k_zh"
		params["ChannelNum"] = 2
	} else {
		speakers := opts.SpeakerCount
		if speakers <= 0 {
			speakers = 2
		}
		params["EngineModelType"] = "16k_zh"
		params["ChannelNum"] = 1
		params["SpeakerDiarization"] = 1
		params["SpeakerNumber"] = speakers
	}

	data, err := c.doAction(ctx, tencentActionCreate, params)
	if err != nil {
		return "", NewSubmitError(c.Provider(), "", err.Error(), err)
	}

	var task tencentTaskData
	if err := json.Unmarshal(data, &task); err != nil {
		return "", NewSubmitError(c.Provider(), "", "decoding task data: "+err.Error(), err)
	}
	if task.TaskID == 0 {
		return "", NewSubmitError(c.Provider(), "", "no task id in response", nil)
	}

	return strconv.FormatUint(task.TaskID, 10), nil
}

// Poll reduces the numeric task status to the shared lifecycle. Unknown
// status codes count as RUNNING; only the documented failure code is
// terminal.
func (c *TencentClient) Poll(ctx context.Context, taskID string) (*TaskStatus, error) {
	id, err := strconv.ParseUint(taskID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid tencent task id %q: %w", taskID, err)
	}

	data, err := c.doAction(ctx, tencentActionDescribe, map[string]interface{}{"TaskId": id})
	if err != nil {
		return nil, fmt.Errorf("polling tencent task %s: %w", taskID, err)
	}

	var task tencentTaskData
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decoding tencent task %s status: %w", taskID, err)
	}

	switch task.Status {
	case tencentStatusSuccess:
		return &TaskStatus{State: TaskSuccess, RawResult: string(data)}, nil
	case tencentStatusFailed:
		return &TaskStatus{State: TaskFailed, Message: task.ErrorMsg}, nil
	default:
		return &TaskStatus{State: TaskRunning}, nil
	}
}

// Parse prefers the structured per-sentence detail; results without it fall
// back to regex decoding of the flat result text.
func (c *TencentClient) Parse(rawResult string, overrides SpeakerOverrides) (models.TranscriptSegments, error) {
	var task tencentTaskData
	if err := json.Unmarshal([]byte(rawResult), &task); err != nil {
		return nil, fmt.Errorf("decoding tencent result: %w", err)
	}

	if len(task.ResultDetail) == 0 {
		return FallbackDecoder{}.Decode(task.Result, overrides), nil
	}

	segments := make(models.TranscriptSegments, 0, len(task.ResultDetail))
	for _, item := range task.ResultDetail {
		text := strings.TrimSpace(item.FinalSentence)
		if text == "" {
			text = strings.TrimSpace(item.SliceSentence)
		}
		if text == "" {
			continue
		}

		segments = append(segments, models.TranscriptSegment{
			StartTime: float64(item.StartMs) / 1000,
			EndTime:   float64(item.EndMs) / 1000,
			Speaker:   defaultSpeakerForChannel(strconv.Itoa(item.SpeakerID), overrides),
			Text:      text,
		})
	}

	segments.SortByStartTime()
	return segments, nil
}
