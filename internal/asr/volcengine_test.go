package asr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wensia/callscribe/internal/models"
)

func newTestVolcengineClient(serverURL string) *VolcengineClient {
	client := NewVolcengineClient(VolcengineCredentials{
		AppID:       "app-123",
		AccessToken: "token-abc",
		QPS:         100,
	}, &http.Client{Timeout: 5 * time.Second})
	client.submitURL = serverURL + "/submit"
	client.queryURL = serverURL + "/query"
	client.requestID = func() string { return "req-fixed" }
	return client
}

func TestAudioFormatFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://example.com/rec/a.mp3", "mp3"},
		{"http://example.com/rec/a.WAV", "wav"},
		{"http://example.com/rec/a.ogg?sig=x", "ogg"},
		{"http://example.com/rec/a.pcm", "pcm"},
		{"http://example.com/rec/download", "wav"},
		{"http://example.com/rec/a.flac", "wav"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, audioFormatFromURL(tt.url), "url %s", tt.url)
	}
}

func TestVolcengineSubmitDualChannel(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/submit", r.URL.Path)
		assert.Equal(t, "app-123", r.Header.Get("X-Api-App-Key"))
		assert.Equal(t, "token-abc", r.Header.Get("X-Api-Access-Key"))
		assert.Equal(t, volcengineResourceID, r.Header.Get("X-Api-Resource-Id"))
		assert.Equal(t, "req-fixed", r.Header.Get("X-Api-Request-Id"))
		assert.Equal(t, "-1", r.Header.Get("X-Api-Sequence"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("X-Api-Status-Code", volcengineCodeSuccess)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestVolcengineClient(server.URL)
	taskID, err := client.Submit(context.Background(), "http://example.com/a.mp3", Options{ChannelNum: 2})
	require.NoError(t, err)
	// The generated request id doubles as the job handle
	assert.Equal(t, "req-fixed", taskID)

	audio := gotBody["audio"].(map[string]interface{})
	assert.Equal(t, "http://example.com/a.mp3", audio["url"])
	assert.Equal(t, "mp3", audio["format"])

	request := gotBody["request"].(map[string]interface{})
	assert.Equal(t, "bigmodel", request["model_name"])
	assert.Equal(t, true, request["enable_channel_split"])
	assert.NotContains(t, request, "enable_speaker_info")
	assert.NotContains(t, request, "corpus")
}

func TestVolcengineSubmitMonoWithCorrectTable(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("X-Api-Status-Code", volcengineCodeSuccess)
	}))
	defer server.Close()

	client := newTestVolcengineClient(server.URL)
	_, err := client.Submit(context.Background(), "http://example.com/a.wav", Options{
		ChannelNum:       1,
		CorrectTableName: "insurance-terms",
	})
	require.NoError(t, err)

	request := gotBody["request"].(map[string]interface{})
	assert.Equal(t, true, request["enable_speaker_info"])
	assert.NotContains(t, request, "enable_channel_split")

	corpus := request["corpus"].(map[string]interface{})
	assert.Equal(t, "insurance-terms", corpus["correct_table_name"])
}

func TestVolcengineSubmitRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Api-Status-Code", "45000001")
		w.Header().Set("X-Api-Message", "invalid audio url")
	}))
	defer server.Close()

	client := newTestVolcengineClient(server.URL)
	_, err := client.Submit(context.Background(), "http://example.com/a.wav", Options{ChannelNum: 2})
	require.Error(t, err)

	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, "45000001", submitErr.Code)
	assert.Equal(t, "invalid audio url", submitErr.Message)
}

func TestVolcenginePollStates(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		wantState TaskState
	}{
		{"success", volcengineCodeSuccess, TaskSuccess},
		{"processing", volcengineCodeProcessing, TaskRunning},
		{"queued", volcengineCodeQueued, TaskRunning},
		{"anything else is terminal failure", "55000000", TaskFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/query", r.URL.Path)
				assert.Equal(t, "req-fixed", r.Header.Get("X-Api-Request-Id"))
				w.Header().Set("X-Api-Status-Code", tt.code)
				w.Header().Set("X-Api-Message", "msg")
				w.Write([]byte(`{"result":{}}`))
			}))
			defer server.Close()

			client := newTestVolcengineClient(server.URL)
			status, err := client.Poll(context.Background(), "req-fixed")
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, status.State)

			if tt.wantState == TaskFailed {
				assert.Equal(t, "55000000", status.Code)
				assert.Equal(t, "msg", status.Message)
			}
			if tt.wantState == TaskSuccess {
				assert.Equal(t, `{"result":{}}`, status.RawResult)
			}
		})
	}
}

func TestVolcengineSpeakerMappingReversed(t *testing.T) {
	// Channel 1 is the customer and channel 2 the staff, unlike the other
	// vendors
	assert.Equal(t, models.SpeakerCustomer, volcengineSpeaker("1", nil))
	assert.Equal(t, models.SpeakerStaff, volcengineSpeaker("2", nil))
	assert.Equal(t, models.SpeakerCustomer, volcengineSpeaker("0", nil))

	overrides := SpeakerOverrides{"1": models.SpeakerStaff}
	assert.Equal(t, models.SpeakerStaff, volcengineSpeaker("1", overrides))
}

func TestVolcengineParseUtterances(t *testing.T) {
	raw := `{
		"result": {
			"text": "full text",
			"utterances": [
				{"text": "我想咨询保单。", "start_time": 4000, "end_time": 7300, "additions": {"channel_id": "1"}},
				{"text": "您好。", "start_time": 500, "end_time": 1800, "additions": {"channel_id": "2"}},
				{"text": "", "start_time": 9000, "end_time": 9100, "additions": {"channel_id": "1"}}
			]
		}
	}`

	client := newTestVolcengineClient("http://unused")
	segments, err := client.Parse(raw, nil)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, "您好。", segments[0].Text)
	assert.Equal(t, models.SpeakerStaff, segments[0].Speaker)
	assert.InDelta(t, 0.5, segments[0].StartTime, 1e-9)
	assert.InDelta(t, 1.8, segments[0].EndTime, 1e-9)

	assert.Equal(t, "我想咨询保单。", segments[1].Text)
	assert.Equal(t, models.SpeakerCustomer, segments[1].Speaker)
}

func TestVolcengineParseSpeakerDiarization(t *testing.T) {
	// Diarized mono tasks report a speaker id in additions instead of a
	// channel id
	raw := `{
		"result": {
			"utterances": [
				{"text": "好的。", "start_time": 100, "end_time": 900, "additions": {"speaker": "2"}}
			]
		}
	}`

	client := newTestVolcengineClient("http://unused")
	segments, err := client.Parse(raw, nil)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, models.SpeakerStaff, segments[0].Speaker)
}
