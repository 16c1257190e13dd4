package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSON(t *testing.T) {
	var out bytes.Buffer
	closer, err := Init(Config{Level: "debug", Format: "json"}, &out)
	require.NoError(t, err)
	defer closer.Close()

	out.Reset()
	logger := Component("journal")
	logger.Info().Int("offset", 42).Msg("appended")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "journal", line["component"])
	assert.Equal(t, "wiredto", line["app"])
	assert.Equal(t, "appended", line["message"])
	assert.Equal(t, float64(42), line["offset"])
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestInit_LevelFallsBackToInfo(t *testing.T) {
	var out bytes.Buffer
	closer, err := Init(Config{Level: "loud", Format: "json"}, &out)
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	out.Reset()
	logger := Component("api")
	logger.Debug().Msg("hidden")
	assert.Zero(t, out.Len())
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "wiredto.log")
	var out bytes.Buffer
	closer, err := Init(Config{Level: "info", Format: "console", File: path}, &out)
	require.NoError(t, err)

	logger := Component("corpus")
	logger.Warn().Msg("written to both")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"corpus"`)
	assert.Contains(t, out.String(), "written to both")
}

func TestInit_UnknownFormat(t *testing.T) {
	_, err := Init(Config{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
