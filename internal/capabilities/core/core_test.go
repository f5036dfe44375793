package core

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/mcpcore/pkg/events"
)

var hex32 = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

func TestInitializeReturnsNewSessionAndCapabilities(t *testing.T) {
	m := New(events.New(), ServerInfo{Name: "mcpcore", Version: "0.1.0"})

	params, _ := json.Marshal(map[string]any{"protocolVersion": "2025-06-18"})
	result, err := m.Handle(context.Background(), "initialize", params)
	require.NoError(t, err)

	r := result.(initializeResult)
	assert.Regexp(t, hex32, r.SessionID)
	assert.True(t, r.Capabilities.Tools.ListChanged)
	assert.True(t, r.Capabilities.Resources.Subscribe)
	assert.Equal(t, "2025-06-18", r.ProtocolVersion)
}

func TestPingReturnsEmptyObject(t *testing.T) {
	m := New(events.New(), ServerInfo{})
	result, err := m.Handle(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, struct{}{}, result)
}

func TestCancelledRecordsRequestAndRepublishes(t *testing.T) {
	bus := events.New()
	m := New(bus, ServerInfo{})

	var received map[string]any
	bus.Subscribe(events.Cancelled, func(payload any) {
		received = payload.(map[string]any)
	})

	params, _ := json.Marshal(map[string]any{"requestId": float64(7), "reason": "client timeout"})
	_, err := m.Handle(context.Background(), "notifications/cancelled", params)
	require.NoError(t, err)

	assert.True(t, m.IsCancelled(float64(7)))
	assert.Equal(t, "client timeout", received["reason"])
}
