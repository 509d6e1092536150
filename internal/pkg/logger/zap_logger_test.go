package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriteAddsModuleAndErrorRef(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := newZap(core)

	l.Debug("Indexer", "hidden", nil)
	l.Error("Indexer", "Embedding failed", map[string]interface{}{"error": "timeout"})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "Embedding failed", entries[0].Message)
		assert.Equal(t, "Indexer", fields["module"])
		assert.Equal(t, "timeout", fields["error_ref"])
	}
}

func TestNilDetailsAreLoggedEmpty(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	newZap(core).Warn("Hub", "Client dropped", nil)

	a := assert.New(t)
	a.Len(logs.All(), 1)
	a.Equal(map[string]interface{}{}, logs.All()[0].ContextMap()["details"])
}
