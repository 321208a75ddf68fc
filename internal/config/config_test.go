package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("ES_HOST", "es.internal")
	t.Setenv("ES_PORTS", "9200, 9300")
	t.Setenv("ES_SCHEME", "https")
	t.Setenv("ES_REQUEST_TIMEOUT", "3s")
	t.Setenv("CATALOG_BASE_URL", "http://catalog.local/")
	t.Setenv("LOG_ADD_SOURCE", "true")

	cfg := Load()

	assert.Equal(t, "es.internal", cfg.Elastic.Host)
	assert.Equal(t, []int{9200, 9300}, cfg.Elastic.Ports)
	assert.Equal(t, 3*time.Second, cfg.Elastic.RequestTimeout)
	assert.Equal(t, "itemdata", cfg.Elastic.Index)
	assert.Equal(t, "http://catalog.local", cfg.Catalog.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Catalog.Timeout)
	assert.True(t, cfg.Log.AddSource)
	assert.Equal(t, []string{"https://es.internal:9200", "https://es.internal:9300"}, cfg.Elastic.Addresses())
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ES_HOST", "ES_PORTS", "ES_SCHEME", "ES_INDEX", "CATALOG_BASE_URL"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, []string{"http://localhost:9200", "http://localhost:9201"}, cfg.Elastic.Addresses())
	assert.Equal(t, "https://api.mercadolibre.com", cfg.Catalog.BaseURL)
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_DURATION_VAR"
	defer os.Unsetenv(key)

	os.Setenv(key, "750ms")
	assert.Equal(t, 750*time.Millisecond, getEnvDuration(key, time.Second))

	os.Setenv(key, "12")
	assert.Equal(t, 12*time.Second, getEnvDuration(key, time.Second))

	os.Setenv(key, "-3s")
	assert.Equal(t, time.Second, getEnvDuration(key, time.Second))

	os.Setenv(key, "soon")
	assert.Equal(t, time.Second, getEnvDuration(key, time.Second))
}

func TestGetEnvIntList(t *testing.T) {
	key := "TEST_LIST_VAR"
	defer os.Unsetenv(key)

	os.Setenv(key, "1,2,3")
	assert.Equal(t, []int{1, 2, 3}, getEnvIntList(key, nil))

	os.Setenv(key, "1,x")
	assert.Equal(t, []int{9}, getEnvIntList(key, []int{9}))
}
