package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerWritesMessageAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("collector")
	l.SetOutput(&buf)

	l.Info("collecting schema")

	out := buf.String()
	assert.Contains(t, out, "collecting schema")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "collector")
}

func TestLoggerWithFieldsAppendsKeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := New("collector")
	l.SetOutput(&buf)

	scoped := l.WithFields(map[string]string{"table": "orders"})
	scoped.Warn("row count unavailable")

	out := buf.String()
	assert.Contains(t, out, "table=orders")
	assert.Contains(t, out, "row count unavailable")
}

func TestLoggerFormattedVariants(t *testing.T) {
	var buf bytes.Buffer
	l := New("collector")
	l.SetOutput(&buf)

	l.Debugf("collected %d tables", 7)
	assert.True(t, strings.Contains(buf.String(), "collected 7 tables"))
}
