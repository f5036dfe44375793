package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/pkg/events"
)

func textResource(uri string) Resource {
	return Resource{
		URI:      uri,
		Name:     uri,
		MimeType: "text/plain",
		Accessor: func(ctx context.Context) (Content, error) {
			return Content{Kind: Text, Text: "hello"}, nil
		},
	}
}

func TestReadUnknownURIIsResourceNotFound(t *testing.T) {
	m := New(events.New())
	params, _ := json.Marshal(map[string]any{"uri": "missing://x"})
	_, err := m.Handle(context.Background(), "resources/read", params)
	require.Error(t, err)
	pErr := err.(*protocol.Error)
	assert.Equal(t, protocol.CodeResourceNotFound, pErr.Code)
}

func TestReadReturnsTextContent(t *testing.T) {
	m := New(events.New())
	m.Register(textResource("file://x"))

	params, _ := json.Marshal(map[string]any{"uri": "file://x"})
	result, err := m.Handle(context.Background(), "resources/read", params)
	require.NoError(t, err)

	wrapper := result.(struct {
		Contents []readContent `json:"contents"`
	})
	require.Len(t, wrapper.Contents, 1)
	assert.Equal(t, "hello", wrapper.Contents[0].Text)
}

func TestSubscribeThenNotifyUpdatedEmitsExactlyOneEvent(t *testing.T) {
	bus := events.New()
	m := New(bus)
	m.Register(textResource("file://x"))

	var events_ []map[string]any
	bus.Subscribe(events.ResourcesUpdated, func(payload any) {
		events_ = append(events_, payload.(map[string]any))
	})

	params, _ := json.Marshal(map[string]any{"uri": "file://x"})
	_, err := m.Handle(context.Background(), "resources/subscribe", params)
	require.NoError(t, err)

	m.NotifyUpdated("file://x")

	require.Len(t, events_, 1)
	assert.Equal(t, "file://x", events_[0]["uri"])
}

func TestNotifyUpdatedWithoutSubscriptionEmitsNothing(t *testing.T) {
	bus := events.New()
	m := New(bus)
	m.Register(textResource("file://x"))

	count := 0
	bus.Subscribe(events.ResourcesUpdated, func(any) { count++ })

	m.NotifyUpdated("file://x")
	assert.Equal(t, 0, count)
}

func TestUnsubscribeDropsNotification(t *testing.T) {
	bus := events.New()
	m := New(bus)
	m.Register(textResource("file://x"))

	count := 0
	bus.Subscribe(events.ResourcesUpdated, func(any) { count++ })

	subParams, _ := json.Marshal(map[string]any{"uri": "file://x"})
	_, _ = m.Handle(context.Background(), "resources/subscribe", subParams)
	_, err := m.Handle(context.Background(), "resources/unsubscribe", subParams)
	require.NoError(t, err)

	m.NotifyUpdated("file://x")
	assert.Equal(t, 0, count)
}

func TestUnsubscribeUnknownURIIsSilentSuccess(t *testing.T) {
	m := New(events.New())
	params, _ := json.Marshal(map[string]any{"uri": "file://nope"})
	result, err := m.Handle(context.Background(), "resources/unsubscribe", params)
	require.NoError(t, err)
	assert.Equal(t, struct{}{}, result)
}

func TestPaginationConcatenatesToFullSetInOrder(t *testing.T) {
	bus := events.New()
	m := New(bus)
	for i := 0; i < 250; i++ {
		m.Register(textResource(fmt.Sprintf("file://%03d", i)))
	}

	var all []listedResource
	cursor := ""
	for {
		params, _ := json.Marshal(map[string]any{"cursor": cursor, "limit": 100})
		result, err := m.Handle(context.Background(), "resources/list", params)
		require.NoError(t, err)
		page := result.(struct {
			Resources  []listedResource `json:"resources"`
			NextCursor string           `json:"nextCursor,omitempty"`
		})
		all = append(all, page.Resources...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	require.Len(t, all, 250)
	for i, r := range all {
		assert.Equal(t, fmt.Sprintf("file://%03d", i), r.URI)
	}
}

func TestPaginationPageSizes(t *testing.T) {
	bus := events.New()
	m := New(bus)
	for i := 0; i < 250; i++ {
		m.Register(textResource(fmt.Sprintf("file://%03d", i)))
	}

	listPage := func(cursor string) (int, string) {
		params, _ := json.Marshal(map[string]any{"cursor": cursor, "limit": 100})
		result, _ := m.Handle(context.Background(), "resources/list", params)
		page := result.(struct {
			Resources  []listedResource `json:"resources"`
			NextCursor string           `json:"nextCursor,omitempty"`
		})
		return len(page.Resources), page.NextCursor
	}

	n1, c1 := listPage("")
	assert.Equal(t, 100, n1)
	assert.NotEmpty(t, c1)

	n2, c2 := listPage(c1)
	assert.Equal(t, 100, n2)
	assert.NotEmpty(t, c2)

	n3, c3 := listPage(c2)
	assert.Equal(t, 50, n3)
	assert.Empty(t, c3)
}

func TestInvalidCursorClampsToStart(t *testing.T) {
	m := New(events.New())
	m.Register(textResource("file://x"))

	params, _ := json.Marshal(map[string]any{"cursor": "not-a-valid-cursor!!"})
	result, err := m.Handle(context.Background(), "resources/list", params)
	require.NoError(t, err)
	page := result.(struct {
		Resources  []listedResource `json:"resources"`
		NextCursor string           `json:"nextCursor,omitempty"`
	})
	require.Len(t, page.Resources, 1)
}

func TestRegisterIsIdempotentForDuplicateURI(t *testing.T) {
	bus := events.New()
	m := New(bus)

	changes := 0
	bus.Subscribe(events.ResourcesListChanged, func(any) { changes++ })

	m.Register(textResource("file://x"))
	m.Register(textResource("file://x"))

	assert.Equal(t, 1, changes)
}
