package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-l", "https://share.example.org", "-d", "db", "-s", "secret",
			"-x", "7", "-m", "90", "-t", "1800", "-n", "shl",
			"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			"-r", "http://ehr", "-k", "svc-token", "-i", "http://sms", "-j", "http://mail", "-o", "http://geoip",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP:     "127.0.0.1:9090",
				PublicBaseURL:        "https://share.example.org",
				DatabaseDSN:          "db",
				SecretKey:            "secret",
				DefaultExpiryDays:    7,
				MaxExpiryDays:        90,
				SignedURLTTL:         1800 * time.Second,
				StorageNamespace:     "shl",
				S3RootUser:           "user",
				S3RootPassword:       "password",
				S3Bucket:             "bucket",
				S3Region:             "us-west-1",
				S3BaseEndpoint:       "http://endpoint",
				EHRBaseEndpoint:      "http://ehr",
				EHRServiceToken:      "svc-token",
				SMSGatewayEndpoint:   "http://sms",
				EmailGatewayEndpoint: "http://mail",
				GeoIPEndpoint:        "http://geoip",
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Equal(t, tt.expected, config)
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
