package config

import (
	"flag"
	"os"
	"time"

	"github.com/carebridge/sharelink/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-l string   public base URL for manifest links
//	-d string   PostgreSQL DSN
//	-s string   bearer-token HMAC secret key
//	-x int      default link expiry, days
//	-m int      maximum link expiry, days
//	-t int      signed-URL TTL, seconds
//	-n string   storage namespace (object key prefix)
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-r string   EHR document endpoint
//	-k string   EHR service token
//	-i string   SMS gateway endpoint
//	-j string   email gateway endpoint
//	-o string   GeoIP lookup endpoint
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. The TTL flag
// is accepted as an integer in seconds and converted to a time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-l", "-d", "-s", "-x", "-m", "-t", "-n",
		"-u", "-p", "-b", "-g", "-e", "-r", "-k", "-i", "-j", "-o",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.PublicBaseURL, "l", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	fs.IntVar(&config.DefaultExpiryDays, "x", config.DefaultExpiryDays, "default link expiry (in days)")
	fs.IntVar(&config.MaxExpiryDays, "m", config.MaxExpiryDays, "maximum link expiry (in days)")
	signedURLTTL := fs.Int("t", int(config.SignedURLTTL.Seconds()), "signed URL TTL (in seconds)")
	fs.StringVar(&config.StorageNamespace, "n", config.StorageNamespace, "storage namespace")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.EHRBaseEndpoint, "r", config.EHRBaseEndpoint, "EHR document endpoint")
	fs.StringVar(&config.EHRServiceToken, "k", config.EHRServiceToken, "EHR service token")
	fs.StringVar(&config.SMSGatewayEndpoint, "i", config.SMSGatewayEndpoint, "SMS gateway endpoint")
	fs.StringVar(&config.EmailGatewayEndpoint, "j", config.EmailGatewayEndpoint, "email gateway endpoint")
	fs.StringVar(&config.GeoIPEndpoint, "o", config.GeoIPEndpoint, "GeoIP lookup endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SignedURLTTL = time.Duration(*signedURLTTL) * time.Second
}
