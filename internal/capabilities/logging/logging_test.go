package logging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/pkg/events"
)

func TestSetLevelAcceptsAllEightRFC5424Names(t *testing.T) {
	names := []string{"emergency", "alert", "critical", "error", "warning", "notice", "info", "debug"}
	for _, name := range names {
		m := New(events.New())
		params, _ := json.Marshal(map[string]any{"level": name})
		_, err := m.Handle(context.Background(), "logging/setLevel", params)
		require.NoError(t, err, name)
	}
}

func TestSetLevelRejectsUnknownName(t *testing.T) {
	m := New(events.New())
	params, _ := json.Marshal(map[string]any{"level": "bogus"})
	_, err := m.Handle(context.Background(), "logging/setLevel", params)
	require.Error(t, err)
	pErr := err.(*protocol.Error)
	assert.Equal(t, "Invalid log level: bogus", pErr.Message)
}

func TestSetLevelRejectsMissingLevel(t *testing.T) {
	m := New(events.New())
	_, err := m.Handle(context.Background(), "logging/setLevel", json.RawMessage(`{}`))
	require.Error(t, err)
	pErr := err.(*protocol.Error)
	assert.Equal(t, protocol.CodeInvalidParams, pErr.Code)
}

func TestLogOnlyPublishesAtOrAboveCurrentSeverity(t *testing.T) {
	bus := events.New()
	m := New(bus)

	params, _ := json.Marshal(map[string]any{"level": "error"}) // 3
	_, _ = m.Handle(context.Background(), "logging/setLevel", params)

	var got int
	bus.Subscribe(events.Message, func(payload any) {
		got++
	})

	m.Log(6, "info message", "", nil)   // less severe than error, suppressed
	assert.Equal(t, 0, got)

	m.Log(2, "critical message", "", nil) // more severe, delivered
	assert.Equal(t, 1, got)
}

func TestEmitProgressRequiresNonEmptyToken(t *testing.T) {
	bus := events.New()
	m := New(bus)

	count := 0
	bus.Subscribe(events.Progress, func(any) { count++ })

	m.EmitProgress("", 0.5, nil)
	assert.Equal(t, 0, count)

	m.EmitProgress("tok", 0.5, nil)
	assert.Equal(t, 1, count)
}
