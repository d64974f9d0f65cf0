package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/carebridge/sharelink/internal/flagx"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. Durations are carried as plain integers (days/seconds) so
// the file stays trivially editable.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files; after unmarshalling, its fields are copied into the
// runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP     string `json:"endpoint_addr_http"`
	PublicBaseURL        string `json:"public_base_url"`
	DatabaseDSN          string `json:"database_dsn"`
	SecretKey            string `json:"secret_key"`
	DefaultExpiryDays    int    `json:"default_expiry_days"`
	MaxExpiryDays        int    `json:"max_expiry_days"`
	SignedURLTTLSeconds  int    `json:"signed_url_ttl_seconds"`
	StorageNamespace     string `json:"storage_namespace"`
	S3RootUser           string `json:"s3_root_user"`
	S3RootPassword       string `json:"s3_root_password"`
	S3Bucket             string `json:"s3_bucket"`
	S3Region             string `json:"s3_region"`
	S3BaseEndpoint       string `json:"s3_base_endpoint"`
	EHRBaseEndpoint      string `json:"ehr_base_endpoint"`
	EHRServiceToken      string `json:"ehr_service_token"`
	SMSGatewayEndpoint   string `json:"sms_gateway_endpoint"`
	EmailGatewayEndpoint string `json:"email_gateway_endpoint"`
	GeoIPEndpoint        string `json:"geoip_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path comes from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.PublicBaseURL = c.PublicBaseURL
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.DefaultExpiryDays = c.DefaultExpiryDays
	config.MaxExpiryDays = c.MaxExpiryDays
	config.SignedURLTTL = time.Duration(c.SignedURLTTLSeconds) * time.Second
	config.StorageNamespace = c.StorageNamespace
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.EHRBaseEndpoint = c.EHRBaseEndpoint
	config.EHRServiceToken = c.EHRServiceToken
	config.SMSGatewayEndpoint = c.SMSGatewayEndpoint
	config.EmailGatewayEndpoint = c.EmailGatewayEndpoint
	config.GeoIPEndpoint = c.GeoIPEndpoint
}
