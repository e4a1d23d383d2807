package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	// Read config without setting config file
	{
		err := ReadInConfig()
		require.NoError(t, err)
		assert.Equal(t, 0, len(config))
	}

	// Read config from a reader
	{
		r := strings.NewReader(`{"http":{"port":"9090"},"store":{"databaseUrl":"postgres://x"}}`)
		err := ReadConfig(r)
		require.NoError(t, err)
		assert.Equal(t, 2, len(config))
	}

	// Missing file
	{
		SetConfigFile("tstdata/missing.json")
		err := ReadInConfig()
		require.Error(t, err)
	}

	// Not valid json
	{
		r := strings.NewReader(`{"http":{"port":`)
		err := ReadConfig(r)
		require.Error(t, err)
	}
}

func TestGet(t *testing.T) {
	config = map[string]interface{}{
		"keyint": 1,
		"store": map[string]interface{}{
			"databaseUrl": "postgres://x",
			"migrate":     true,
		},
	}

	vInt, isInt := Get("keyint").(int)
	require.True(t, isInt)
	assert.Equal(t, 1, vInt)

	// Subpath missing
	assert.Nil(t, Get("keyint.sub"))

	// Subpath OK
	vBool, isBool := Get("store.migrate").(bool)
	require.True(t, isBool)
	assert.True(t, vBool)

	assert.Equal(t, "postgres://x", GetString("store.databaseUrl"))
	assert.Equal(t, "", GetString("store.migrate"))
}

type s struct {
	DatabaseURL string `json:"databaseUrl"`
	Migrate     bool   `json:"migrate"`
	Port        string `json:"port" env:"HTTP_PORT"`
}

func TestUnmarshal(t *testing.T) {
	config = map[string]interface{}{
		"keyint": 1,
		"store": map[string]interface{}{
			"databaseUrl": "postgres://x",
			"migrate":     true,
		},
	}

	var v1 s
	err := Unmarshal("keyint", &v1)
	require.Error(t, err)

	var v2 s
	os.Setenv("HTTP_PORT", "9090")
	err = Unmarshal("store", &v2)
	require.NoError(t, err)
	assert.True(t, v2.Migrate)
	assert.Equal(t, "postgres://x", v2.DatabaseURL)
	assert.Equal(t, "9090", v2.Port)

	// env.Parse error on non-pointer
	var v3 s
	err = Unmarshal("keynil", v3)
	require.Error(t, err)
}
