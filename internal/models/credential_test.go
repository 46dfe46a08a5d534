package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialMapScanMixedScalarTypes(t *testing.T) {
	// Externally-owned profiles store qps as a JSON number next to string keys
	raw := []byte(`{"app_id":"app-1","access_token":"tok","cluster":"c1","qps":20}`)

	var creds CredentialMap
	require.NoError(t, creds.Scan(raw))

	assert.Equal(t, "app-1", creds.GetString("app_id"))
	assert.Equal(t, "tok", creds.GetString("access_token"))

	qps, ok := creds.GetInt("qps")
	require.True(t, ok)
	assert.Equal(t, 20, qps)
}

func TestCredentialMapScanNil(t *testing.T) {
	var creds CredentialMap
	require.NoError(t, creds.Scan(nil))
	assert.NotNil(t, creds)
	assert.Empty(t, creds)
}

func TestCredentialMapGetString(t *testing.T) {
	creds := CredentialMap{
		"name":    "prod",
		"qps":     float64(20),
		"ratio":   1.5,
		"enabled": true,
		"nested":  map[string]interface{}{"a": 1},
	}

	assert.Equal(t, "prod", creds.GetString("name"))
	assert.Equal(t, "20", creds.GetString("qps"))
	assert.Equal(t, "1.5", creds.GetString("ratio"))
	assert.Equal(t, "true", creds.GetString("enabled"))
	assert.Equal(t, "", creds.GetString("nested"))
	assert.Equal(t, "", creds.GetString("missing"))
}

func TestCredentialMapGetInt(t *testing.T) {
	creds := CredentialMap{
		"number":  float64(15),
		"numeric": " 30 ",
		"word":    "fast",
	}

	n, ok := creds.GetInt("number")
	require.True(t, ok)
	assert.Equal(t, 15, n)

	n, ok = creds.GetInt("numeric")
	require.True(t, ok)
	assert.Equal(t, 30, n)

	_, ok = creds.GetInt("word")
	assert.False(t, ok)

	_, ok = creds.GetInt("missing")
	assert.False(t, ok)
}
