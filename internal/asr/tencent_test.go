package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wensia/callscribe/internal/models"
)

func TestTC3SignDeterministic(t *testing.T) {
	payload := []byte(`{"Url":"http://example.com/a.mp3"}`)
	timestamp := int64(1700000000)

	first := tc3Sign("AKIDtest", "secret", "asr.tencentcloudapi.com", tencentActionCreate, payload, timestamp)
	second := tc3Sign("AKIDtest", "secret", "asr.tencentcloudapi.com", tencentActionCreate, payload, timestamp)
	assert.Equal(t, first, second)

	// 2023-11-14 UTC for this timestamp; scope date must come from UTC
	assert.Contains(t, first, "TC3-HMAC-SHA256 Credential=AKIDtest/2023-11-14/asr/tc3_request")
	assert.Contains(t, first, "SignedHeaders=content-type;host;x-tc-action")

	sigRe := regexp.MustCompile(`Signature=([0-9a-f]{64})$`)
	assert.Regexp(t, sigRe, first)
}

func TestTC3SignVariesWithInput(t *testing.T) {
	payload := []byte(`{}`)
	base := tc3Sign("id", "key", "asr.tencentcloudapi.com", tencentActionCreate, payload, 1700000000)

	assert.NotEqual(t, base, tc3Sign("id", "key2", "asr.tencentcloudapi.com", tencentActionCreate, payload, 1700000000))
	assert.NotEqual(t, base, tc3Sign("id", "key", "asr.tencentcloudapi.com", tencentActionDescribe, payload, 1700000000))
	assert.NotEqual(t, base, tc3Sign("id", "key", "asr.tencentcloudapi.com", tencentActionCreate, []byte(`{"a":1}`), 1700000000))
	assert.NotEqual(t, base, tc3Sign("id", "key", "asr.tencentcloudapi.com", tencentActionCreate, payload, 1700086400))
}

func newTestTencentClient(serverURL string) *TencentClient {
	client := NewTencentClient(TencentCredentials{
		SecretID:  "test-id",
		SecretKey: "test-key",
		AppID:     "1300000000",
	}, &http.Client{Timeout: 5 * time.Second})
	client.endpoint = serverURL
	client.now = func() time.Time { return time.Unix(1700000000, 0) }
	return client
}

func TestTencentSubmitDualChannel(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tencentActionCreate, r.Header.Get("X-TC-Action"))
		assert.Equal(t, tencentAPIVersion, r.Header.Get("X-TC-Version"))
		assert.NotEmpty(t, r.Header.Get("X-TC-Timestamp"))
		assert.Contains(t, r.Header.Get("Authorization"), "TC3-HMAC-SHA256 Credential=test-id/")

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"Response":{"RequestId":"r1","Data":{"TaskId":4500001}}}`)
	}))
	defer server.Close()

	client := newTestTencentClient(server.URL)
	taskID, err := client.Submit(context.Background(), "http://example.com/a.mp3", Options{ChannelNum: 2})
	require.NoError(t, err)
	assert.Equal(t, "4500001", taskID)

	assert.Equal(t, "8k_zh", gotBody["EngineModelType"])
	assert.Equal(t, float64(2), gotBody["ChannelNum"])
	assert.NotContains(t, gotBody, "SpeakerDiarization")
}

func TestTencentSubmitMonoUsesDiarization(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"Response":{"Data":{"TaskId":99}}}`)
	}))
	defer server.Close()

	client := newTestTencentClient(server.URL)
	_, err := client.Submit(context.Background(), "http://example.com/a.mp3", Options{ChannelNum: 1, SpeakerCount: 2})
	require.NoError(t, err)

	assert.Equal(t, "16k_zh", gotBody["EngineModelType"])
	assert.Equal(t, float64(1), gotBody["ChannelNum"])
	assert.Equal(t, float64(1), gotBody["SpeakerDiarization"])
	assert.Equal(t, float64(2), gotBody["SpeakerNumber"])
}

func TestTencentSubmitVendorRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Response":{"Error":{"Code":"InvalidParameterValue","Message":"bad url"}}}`)
	}))
	defer server.Close()

	client := newTestTencentClient(server.URL)
	_, err := client.Submit(context.Background(), "not-a-url", Options{ChannelNum: 2})
	require.Error(t, err)

	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Contains(t, submitErr.Message, "InvalidParameterValue")
}

func TestTencentPollStates(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantState TaskState
	}{
		{
			name:      "waiting maps to running",
			body:      `{"Response":{"Data":{"TaskId":1,"Status":0}}}`,
			wantState: TaskRunning,
		},
		{
			name:      "doing maps to running",
			body:      `{"Response":{"Data":{"TaskId":1,"Status":1}}}`,
			wantState: TaskRunning,
		},
		{
			name:      "success",
			body:      `{"Response":{"Data":{"TaskId":1,"Status":2,"Result":""}}}`,
			wantState: TaskSuccess,
		},
		{
			name:      "failed",
			body:      `{"Response":{"Data":{"TaskId":1,"Status":3,"ErrorMsg":"decode error"}}}`,
			wantState: TaskFailed,
		},
		{
			name:      "unknown status defaults to running",
			body:      `{"Response":{"Data":{"TaskId":1,"Status":7}}}`,
			wantState: TaskRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tencentActionDescribe, r.Header.Get("X-TC-Action"))
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := newTestTencentClient(server.URL)
			status, err := client.Poll(context.Background(), "1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, status.State)
		})
	}
}

func TestTencentParseStructuredDetail(t *testing.T) {
	raw := `{
		"TaskId": 1,
		"Status": 2,
		"Result": "[0:0.500,0:2.000]  你好。",
		"ResultDetail": [
			{"FinalSentence": "稍等一下", "StartMs": 5000, "EndMs": 7200, "SpeakerId": 1},
			{"FinalSentence": "你好。", "StartMs": 500, "EndMs": 2000, "SpeakerId": 0}
		]
	}`

	client := newTestTencentClient("http://unused")
	segments, err := client.Parse(raw, nil)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	// Sorted by start time, not vendor-native order
	assert.Equal(t, "你好。", segments[0].Text)
	assert.Equal(t, models.SpeakerStaff, segments[0].Speaker)
	assert.InDelta(t, 0.5, segments[0].StartTime, 1e-9)
	assert.InDelta(t, 2.0, segments[0].EndTime, 1e-9)

	assert.Equal(t, "稍等一下", segments[1].Text)
	assert.Equal(t, models.SpeakerCustomer, segments[1].Speaker)
}

func TestTencentParseFallsBackToFlatText(t *testing.T) {
	raw := `{"TaskId":1,"Status":2,"Result":"[0:0.700,0:1.650,0]  喂，你好。\n[1:7.740,1:9.110,1] 你好"}`

	client := newTestTencentClient("http://unused")
	segments, err := client.Parse(raw, nil)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, models.SpeakerStaff, segments[0].Speaker)
	assert.Equal(t, models.SpeakerCustomer, segments[1].Speaker)
}
