package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/mcpcore/internal/capabilities/core"
	"github.com/standardbeagle/mcpcore/internal/dispatch"
	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/internal/registry"
	"github.com/standardbeagle/mcpcore/pkg/events"
)

func newTestProcessor() *dispatch.Processor {
	reg := registry.New()
	reg.Register(core.New(events.New(), core.ServerInfo{Name: "mcpcore", Version: "0.1.0"}))
	return dispatch.New(reg)
}

func TestRunEchoesOneReplyPerLine(t *testing.T) {
	in := strings.NewReader("\n" + `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	var out bytes.Buffer

	tr := New(newTestProcessor(), in, &out)
	err := tr.Run(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Nil(t, resp.Error)
}

func TestShutdownRejectsNewRequestsWithMinus32000(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	var out bytes.Buffer

	tr := New(newTestProcessor(), in, &out)
	tr.BeginShutdown()
	err := tr.Run(context.Background())
	require.NoError(t, err)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeServerError, resp.Error.Code)
}

func TestShutdownWaitsForDrain(t *testing.T) {
	tr := New(newTestProcessor(), strings.NewReader(""), &bytes.Buffer{})
	done := tr.BeginRequest()
	go func() {
		time.Sleep(10 * time.Millisecond)
		done()
	}()

	ok := tr.Shutdown(200*time.Millisecond, 5*time.Millisecond)
	assert.True(t, ok)
}
