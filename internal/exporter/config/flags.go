package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/exporter3/internal/flagx"
)

var ownFlags = []string{
	"-a", "-d", "-m", "-u", "-p", "-g", "-e", "-s", "-b", "-z", "-k",
	"-r", "-w", "-q", "-t", "-o", "-l",
}

// parseFlags overlays Config fields given on the command line.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g. ":50061")
//	-d string     PostgreSQL DSN
//	-m            in-memory mode
//	-u string     S3 access key
//	-p string     S3 secret key
//	-g string     S3 region
//	-e string     S3 base endpoint
//	-s string     staging bucket
//	-b string     raw data bucket
//	-z string     dated folder time zone
//	-k string     age identity directory
//	-r string     Redis address
//	-w int        worker count
//	-q float      dispatch rate, requests per second (0 is unlimited)
//	-t duration   per-upload lease ttl
//	-o string     operator token
//	-l string     log level
//
// Arguments not listed here are dropped with flagx.FilterArgs so other flag
// sets (-c) can share os.Args.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("exporter", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.BoolVar(&config.InMemory, "m", config.InMemory, "use in-memory stores and queue")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.StagingBucket, "s", config.StagingBucket, "staging bucket")
	fs.StringVar(&config.RawDataBucket, "b", config.RawDataBucket, "raw data bucket")
	fs.StringVar(&config.TimeZone, "z", config.TimeZone, "time zone of dated folders")
	fs.StringVar(&config.KeysDir, "k", config.KeysDir, "directory with per-app age identities")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")
	fs.IntVar(&config.Workers, "w", config.Workers, "export workers")
	fs.Float64Var(&config.DispatchRate, "q", config.DispatchRate, "dispatch rate per second")
	fs.DurationVar(&config.LeaseTTL, "t", config.LeaseTTL, "per-upload lease ttl")
	fs.StringVar(&config.OperatorToken, "o", config.OperatorToken, "operator token for mutating calls")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(flagx.FilterArgs(args, ownFlags))
}
