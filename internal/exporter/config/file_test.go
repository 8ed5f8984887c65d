package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseFile_JSON(t *testing.T) {
	p := writeFile(t, "exporter.json", `{
		"endpoint_addr_grpc": ":7000",
		"raw_data_bucket": "archive",
		"workers": 2,
		"lease_ttl": "30s",
		"poll_delay": 250000000
	}`)

	c := &Config{}
	c.LoadDefaults()
	require.NoError(t, parseFile(c, []string{"-c", p}))

	assert.Equal(t, ":7000", c.EndpointAddrGRPC)
	assert.Equal(t, "archive", c.RawDataBucket)
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, 30*time.Second, c.LeaseTTL)
	assert.Equal(t, 250*time.Millisecond, c.PollDelay)
	// untouched
	assert.Equal(t, "upload-staging", c.StagingBucket)
	assert.Equal(t, 10*time.Minute, c.RedeliverAfter)
}

func TestParseFile_YAML(t *testing.T) {
	p := writeFile(t, "exporter.yaml", `
in_memory: true
time_zone: UTC
dispatch_rate: 0.5
redeliver_after: 20m
queue_consumer: worker-1
`)

	c := &Config{}
	c.LoadDefaults()
	require.NoError(t, parseFile(c, []string{"-config=" + p}))

	assert.True(t, c.InMemory)
	assert.Equal(t, "UTC", c.TimeZone)
	assert.Equal(t, 0.5, c.DispatchRate)
	assert.Equal(t, 20*time.Minute, c.RedeliverAfter)
	assert.Equal(t, "worker-1", c.QueueConsumer)
}

func TestParseFile_NoFlag(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()
	require.NoError(t, parseFile(c, []string{"-a", ":1"}))
	assert.Equal(t, ":50061", c.EndpointAddrGRPC)
}

func TestParseFile_Errors(t *testing.T) {
	c := &Config{}

	err := parseFile(c, []string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	p := writeFile(t, "bad.json", `{"workers": "four"}`)
	assert.Error(t, parseFile(c, []string{"-c", p}))

	p = writeFile(t, "bad.yml", "lease_ttl: soon\n")
	assert.Error(t, parseFile(c, []string{"-c", p}))
}

func TestParseFile_NegativePollDelayFailsValidation(t *testing.T) {
	p := writeFile(t, "exporter.yaml", "poll_delay: -1s\n")

	c := &Config{}
	c.LoadDefaults()
	require.NoError(t, parseFile(c, []string{"-c", p}))
	assert.Equal(t, -time.Second, c.PollDelay)
	assert.ErrorContains(t, c.Validate(), "poll delay")
}
