package asr

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wensia/callscribe/internal/models"
)

const (
	alibabaDefaultEndpoint = "https://filetrans.cn-shanghai.aliyuncs.com"
	alibabaAPIVersion      = "2018-08-17"

	alibabaActionSubmit = "SubmitTask"
	alibabaActionResult = "GetTaskResult"
)

// Alibaba task status texts. Everything not listed terminal maps to RUNNING.
const (
	alibabaStatusSuccess         = "SUCCESS"
	alibabaStatusSuccessNoSpeech = "SUCCESS_WITH_NO_VALID_FRAGMENT"
	alibabaStatusFailed          = "FAILED"
)

// AlibabaClient drives the Alibaba Cloud Filetrans API (SubmitTask /
// GetTaskResult). Requests are RPC-style POSTs signed with HMAC-SHA1 over a
// percent-encoded, key-sorted query string.
type AlibabaClient struct {
	creds      AlibabaCredentials
	httpClient *http.Client
	endpoint   string
	now        func() time.Time
	nonce      func() string
}

// NewAlibabaClient creates an Alibaba ASR client on the shared HTTP pool
func NewAlibabaClient(creds AlibabaCredentials, httpClient *http.Client) *AlibabaClient {
	return &AlibabaClient{
		creds:      creds,
		httpClient: httpClient,
		endpoint:   alibabaDefaultEndpoint,
		now:        time.Now,
		nonce:      func() string { return uuid.NewString() },
	}
}

// Provider returns the provider tag
func (c *AlibabaClient) Provider() string {
	return models.ProviderAlibaba
}

// percentEncode applies the POP-gateway encoding rules, which differ from
// url.QueryEscape for space, '*' and '~'
func percentEncode(s string) string {
	encoded := url.QueryEscape(s)
	encoded = strings.ReplaceAll(encoded, "+", "%20")
	encoded = strings.ReplaceAll(encoded, "*", "%2A")
	encoded = strings.ReplaceAll(encoded, "%7E", "~")
	return encoded
}

// signQuery returns the full query string including the Signature parameter.
// The string-to-sign is "POST&%2F&" followed by the percent-encoded,
// key-sorted canonical query.
func (c *AlibabaClient) signQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}
	canonicalQuery := strings.Join(pairs, "&")

	stringToSign := "POST&%2F&" + percentEncode(canonicalQuery)

	mac := hmac.New(sha1.New, []byte(c.creds.AccessKeySecret+"&"))
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return canonicalQuery + "&Signature=" + percentEncode(signature)
}

// doAction posts one signed API action and returns the raw response body
func (c *AlibabaClient) doAction(ctx context.Context, action string, extra map[string]string) ([]byte, error) {
	params := map[string]string{
		"AccessKeyId":      c.creds.AccessKeyID,
		"Action":           action,
		"Format":           "JSON",
		"RegionId":         "cn-shanghai",
		"SignatureMethod":  "HMAC-SHA1",
		"SignatureNonce":   c.nonce(),
		"SignatureVersion": "1.0",
		"Timestamp":        c.now().UTC().Format("2006-01-02T15:04:05Z"),
		"Version":          alibabaAPIVersion,
	}
	for k, v := range extra {
		params[k] = v
	}

	fullURL := c.endpoint + "/?" + c.signQuery(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", action, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing %s request: %w", action, err)
	}
	defer resp.Body.Close()

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", action, err)
	}

	return body, nil
}

type alibabaTaskResponse struct {
	TaskID     string          `json:"TaskId"`
	RequestID  string          `json:"RequestId"`
	StatusText string          `json:"StatusText"`
	StatusCode int64           `json:"StatusCode"`
	Message    string          `json:"Message"`
	Result     json.RawMessage `json:"Result"`
}

type alibabaSentence struct {
	Text         string      `json:"Text"`
	ChannelID    int         `json:"ChannelId"`
	BeginTime    int64       `json:"BeginTime"`
	EndTime      int64       `json:"EndTime"`
	EmotionValue json.Number `json:"EmotionValue"`
}

// Submit creates a file transcription task. The task config travels as a
// JSON blob in the Task parameter. Dual-channel audio relies on the vendor's
// channel separation; mono audio asks for auto_split diarization.
func (c *AlibabaClient) Submit(ctx context.Context, audioURL string, opts Options) (string, error) {
	task := map[string]interface{}{
		"appkey":       c.creds.AppKey,
		"file_link":    audioURL,
		"version":      "4.0",
		"enable_words": false,
	}
	if opts.ChannelNum != 2 {
		task["auto_split"] = true
	}

	taskJSON, err := json.Marshal(task)
	if err != nil {
		return "", NewSubmitError(c.Provider(), "", "marshaling task config: "+err.Error(), err)
	}

	body, err := c.doAction(ctx, alibabaActionSubmit, map[string]string{"Task": string(taskJSON)})
	if err != nil {
		return "", NewSubmitError(c.Provider(), "", err.Error(), err)
	}

	var resp alibabaTaskResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", NewSubmitError(c.Provider(), "", "decoding submit response: "+err.Error(), err)
	}

	if resp.TaskID == "" || resp.StatusText == alibabaStatusFailed {
		code := strconv.FormatInt(resp.StatusCode, 10)
		msg := resp.StatusText
		if resp.Message != "" {
			msg = resp.Message
		}
		return "", NewSubmitError(c.Provider(), code, msg, nil)
	}

	return resp.TaskID, nil
}

// Poll reduces the vendor status text to the shared lifecycle. QUEUEING,
// RUNNING and any unrecognized status count as RUNNING; only FAILED is
// terminal failure.
func (c *AlibabaClient) Poll(ctx context.Context, taskID string) (*TaskStatus, error) {
	body, err := c.doAction(ctx, alibabaActionResult, map[string]string{"TaskId": taskID})
	if err != nil {
		return nil, fmt.Errorf("polling alibaba task %s: %w", taskID, err)
	}

	var resp alibabaTaskResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding alibaba task %s status: %w", taskID, err)
	}

	switch resp.StatusText {
	case alibabaStatusSuccess, alibabaStatusSuccessNoSpeech:
		return &TaskStatus{State: TaskSuccess, RawResult: string(body)}, nil
	case alibabaStatusFailed:
		return &TaskStatus{
			State:   TaskFailed,
			Code:    strconv.FormatInt(resp.StatusCode, 10),
			Message: resp.Message,
		}, nil
	default:
		return &TaskStatus{State: TaskRunning}, nil
	}
}

// Parse decodes the structured sentence array. Channel 0 is the staff side,
// channel 1 the customer side, unless overridden.
func (c *AlibabaClient) Parse(rawResult string, overrides SpeakerOverrides) (models.TranscriptSegments, error) {
	var resp alibabaTaskResponse
	if err := json.Unmarshal([]byte(rawResult), &resp); err != nil {
		return nil, fmt.Errorf("decoding alibaba result: %w", err)
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, nil
	}

	// Result is usually an object but some gateway versions deliver it as a
	// JSON-encoded string
	raw := resp.Result
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}

	var result struct {
		Sentences []alibabaSentence `json:"Sentences"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding alibaba sentences: %w", err)
	}

	segments := make(models.TranscriptSegments, 0, len(result.Sentences))
	for _, s := range result.Sentences {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}

		segments = append(segments, models.TranscriptSegment{
			StartTime: float64(s.BeginTime) / 1000,
			EndTime:   float64(s.EndTime) / 1000,
			Speaker:   defaultSpeakerForChannel(strconv.Itoa(s.ChannelID), overrides),
			Text:      text,
			Emotion:   s.EmotionValue.String(),
		})
	}

	segments.SortByStartTime()
	return segments, nil
}
