package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ASR provider tags. The credential payload shape is provider-specific and
// only interpreted by the matching vendor client.
const (
	ProviderTencent    = "tencent"
	ProviderAlibaba    = "alibaba"
	ProviderVolcengine = "volcengine"
)

// CredentialMap holds the opaque vendor-specific credential blob. Values are
// untyped because the profiles are owned externally and carry mixed JSON
// scalars, such as the numeric Volcengine qps field next to string keys.
type CredentialMap map[string]interface{}

// GetString returns the value under key rendered as a string, or "" when the
// key is absent or holds a non-scalar
func (m CredentialMap) GetString(key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// GetInt returns the value under key as an int. JSON numbers and numeric
// strings both qualify; anything else reports false.
func (m CredentialMap) GetInt(key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Value implements driver.Valuer interface for CredentialMap
func (m CredentialMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner interface for CredentialMap
func (m *CredentialMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(CredentialMap)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, m)
}

// ASRCredential is an ASR credential profile. Profiles are created and
// mutated by the config-management service; this pipeline reads them only.
type ASRCredential struct {
	gorm.Model
	Provider       string        `json:"provider" gorm:"not null;index"`
	Name           string        `json:"name" gorm:"not null"`
	Credentials    CredentialMap `json:"credentials" gorm:"type:json"`
	IsActive       bool          `json:"is_active" gorm:"default:true"`
	IsDefault      bool          `json:"is_default" gorm:"default:false"`
	LastVerifiedAt *time.Time    `json:"last_verified_at"`
}

// TableName specifies the table name for GORM
func (ASRCredential) TableName() string {
	return "asr_credentials"
}
