package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelParsing(t *testing.T) {
	var buf bytes.Buffer

	log := NewWithWriter(Config{Level: "warn"}, &buf)
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())

	log.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	log.Warn().Str("component", "test").Msg("kept")
	assert.Contains(t, buf.String(), `"component":"test"`)
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log := NewWithWriter(Config{Level: "chatty"}, &bytes.Buffer{})
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}
