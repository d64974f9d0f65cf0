package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJson_OverlaysValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"endpoint_addr_http": ":9999",
		"public_base_url": "https://share.example.org",
		"database_dsn": "postgres://json",
		"secret_key": "json-secret",
		"default_expiry_days": 14,
		"max_expiry_days": 180,
		"signed_url_ttl_seconds": 900,
		"storage_namespace": "shl",
		"s3_root_user": "ju",
		"s3_root_password": "jp",
		"s3_bucket": "jb",
		"s3_region": "jr",
		"s3_base_endpoint": "http://json:9000/",
		"ehr_base_endpoint": "http://json-ehr",
		"ehr_service_token": "jt",
		"sms_gateway_endpoint": "http://json-sms",
		"email_gateway_endpoint": "http://json-mail",
		"geoip_endpoint": "http://json-geo"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)
	os.Args = []string{"cmd", "-c", path}

	config := &Config{}
	require.NotPanics(t, func() { parseJson(config) })

	assert.Equal(t, ":9999", config.EndpointAddrHTTP)
	assert.Equal(t, "https://share.example.org", config.PublicBaseURL)
	assert.Equal(t, "postgres://json", config.DatabaseDSN)
	assert.Equal(t, "json-secret", config.SecretKey)
	assert.Equal(t, 14, config.DefaultExpiryDays)
	assert.Equal(t, 180, config.MaxExpiryDays)
	assert.Equal(t, 900*time.Second, config.SignedURLTTL)
	assert.Equal(t, "shl", config.StorageNamespace)
	assert.Equal(t, "http://json-geo", config.GeoIPEndpoint)
}

func TestParseJson_NoFileFlagIsNoop(t *testing.T) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)
	os.Args = []string{"cmd"}

	config := &Config{}
	config.LoadDefaults()
	before := *config

	require.NotPanics(t, func() { parseJson(config) })
	assert.Equal(t, before, *config)
}

func TestParseJson_InvalidJsonPanics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)
	os.Args = []string{"cmd", "-c", path}

	require.Panics(t, func() { parseJson(&Config{}) })
}
