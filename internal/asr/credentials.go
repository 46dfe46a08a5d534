package asr

import (
	"fmt"
	"net/http"

	"github.com/wensia/callscribe/internal/models"
)

// Per-vendor credential shapes, decoded from the opaque credential map at
// client construction time. Missing required fields fail construction, not
// the first request.

// TencentCredentials authenticate against Tencent Cloud ASR
type TencentCredentials struct {
	SecretID  string
	SecretKey string
	AppID     string
}

func (c TencentCredentials) validate() error {
	if c.SecretID == "" || c.SecretKey == "" {
		return fmt.Errorf("tencent credentials require secret_id and secret_key")
	}
	return nil
}

// AlibabaCredentials authenticate against Alibaba Cloud Filetrans
type AlibabaCredentials struct {
	AccessKeyID     string
	AccessKeySecret string
	AppKey          string
}

func (c AlibabaCredentials) validate() error {
	if c.AccessKeyID == "" || c.AccessKeySecret == "" || c.AppKey == "" {
		return fmt.Errorf("alibaba credentials require access_key_id, access_key_secret and app_key")
	}
	return nil
}

// VolcengineCredentials authenticate against the Volcengine bigasr service
type VolcengineCredentials struct {
	AppID       string
	AccessToken string
	Cluster     string
	QPS         int
}

func (c VolcengineCredentials) validate() error {
	if c.AppID == "" || c.AccessToken == "" {
		return fmt.Errorf("volcengine credentials require app_id and access_token")
	}
	return nil
}

// NewClient instantiates the vendor client matching the provider tag from an
// opaque credential map. Unknown providers are an error; the caller treats
// that as a configuration fault that aborts the whole run.
func NewClient(provider string, creds models.CredentialMap, httpClient *http.Client) (Client, error) {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}

	switch provider {
	case models.ProviderTencent:
		c := TencentCredentials{
			SecretID:  creds.GetString("secret_id"),
			SecretKey: creds.GetString("secret_key"),
			AppID:     creds.GetString("app_id"),
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return NewTencentClient(c, httpClient), nil

	case models.ProviderAlibaba:
		c := AlibabaCredentials{
			AccessKeyID:     creds.GetString("access_key_id"),
			AccessKeySecret: creds.GetString("access_key_secret"),
			AppKey:          creds.GetString("app_key"),
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return NewAlibabaClient(c, httpClient), nil

	case models.ProviderVolcengine:
		// qps arrives as a JSON number or a numeric string depending on who
		// wrote the profile
		qps := 0
		if raw, present := creds["qps"]; present && raw != nil && raw != "" {
			parsed, ok := creds.GetInt("qps")
			if !ok {
				return nil, fmt.Errorf("volcengine credentials: invalid qps %v", raw)
			}
			qps = parsed
		}
		c := VolcengineCredentials{
			AppID:       creds.GetString("app_id"),
			AccessToken: creds.GetString("access_token"),
			Cluster:     creds.GetString("cluster"),
			QPS:         qps,
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return NewVolcengineClient(c, httpClient), nil

	default:
		return nil, fmt.Errorf("unknown ASR provider: %s", provider)
	}
}
