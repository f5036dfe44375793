// Package resources implements the Resources Capability Manager:
// list/read/templates/subscribe/unsubscribe plus the NotifyUpdated entry
// point used by resource implementations. Handler shapes and the
// dual-bookkeeping subscription idea are grounded on the teacher's
// internal/mcp/resources.go, simplified to single (manager-owned)
// bookkeeping and extended with cursor signing and real pagination (the
// teacher's list handler does not paginate at all).
package resources

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/pkg/events"
)

const defaultLimit = 100

// ContentKind distinguishes text from binary resource content.
type ContentKind int

const (
	Text ContentKind = iota
	Blob
)

// Content is what resources/read returns for one resource.
type Content struct {
	Kind ContentKind
	Text string
	Blob []byte
}

// Accessor fetches a resource's current content on demand.
type Accessor func(ctx context.Context) (Content, error)

// Resource is one registered resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Accessor    Accessor
}

// Template is one registered resource template (an opaque RFC 6570
// string the server never expands).
type Template struct {
	URITemplate string
	Name        string
	Description string
	MimeType    string
}

// Manager implements registry.Manager for resources/*.
type Manager struct {
	bus    *events.Bus
	mu     sync.Mutex
	order  []string
	byURI  map[string]Resource

	templateOrder []string
	templates     map[string]Template

	// subscriptions maps a URI to its reference count.
	subscriptions map[string]int

	cursorKey []byte
}

// New constructs an empty resources Manager.
func New(bus *events.Bus) *Manager {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return &Manager{
		bus:           bus,
		byURI:         make(map[string]Resource),
		templates:     make(map[string]Template),
		subscriptions: make(map[string]int),
		cursorKey:     key,
	}
}

func (m *Manager) Name() string { return "resources" }

func (m *Manager) Claims(method string) bool {
	switch method {
	case "resources/list", "resources/read", "resources/templates/list",
		"resources/subscribe", "resources/unsubscribe":
		return true
	default:
		return false
	}
}

// Register adds a resource. Re-registering an existing URI is a silent
// no-op.
func (m *Manager) Register(r Resource) {
	m.mu.Lock()
	if _, exists := m.byURI[r.URI]; exists {
		m.mu.Unlock()
		return
	}
	m.byURI[r.URI] = r
	m.order = append(m.order, r.URI)
	m.mu.Unlock()

	m.bus.Publish(events.ResourcesListChanged, struct{}{})
}

// Unregister removes a resource by URI. No-op if absent.
func (m *Manager) Unregister(uri string) {
	m.mu.Lock()
	if _, exists := m.byURI[uri]; !exists {
		m.mu.Unlock()
		return
	}
	delete(m.byURI, uri)
	for i, u := range m.order {
		if u == uri {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.bus.Publish(events.ResourcesListChanged, struct{}{})
}

// RegisterTemplate adds a resource template. Re-registering an existing
// URI-template string is a silent no-op.
func (m *Manager) RegisterTemplate(t Template) {
	m.mu.Lock()
	if _, exists := m.templates[t.URITemplate]; exists {
		m.mu.Unlock()
		return
	}
	m.templates[t.URITemplate] = t
	m.templateOrder = append(m.templateOrder, t.URITemplate)
	m.mu.Unlock()

	m.bus.Publish(events.ResourcesListChanged, struct{}{})
}

// UnregisterTemplate removes a template by its URI-template string.
func (m *Manager) UnregisterTemplate(uriTemplate string) {
	m.mu.Lock()
	if _, exists := m.templates[uriTemplate]; !exists {
		m.mu.Unlock()
		return
	}
	delete(m.templates, uriTemplate)
	for i, u := range m.templateOrder {
		if u == uriTemplate {
			m.templateOrder = append(m.templateOrder[:i], m.templateOrder[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.bus.Publish(events.ResourcesListChanged, struct{}{})
}

func (m *Manager) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "resources/list":
		return m.list(params)
	case "resources/read":
		return m.read(ctx, params)
	case "resources/templates/list":
		return m.listTemplates(), nil
	case "resources/subscribe":
		return m.subscribe(params)
	case "resources/unsubscribe":
		return m.unsubscribe(params)
	default:
		return nil, protocol.NewError(protocol.CodeMethodNotFound, "Method ["+method+"] not found")
	}
}

// --- cursor signing ---
//
// Per spec §9 Open Question 1: the cursor is a decimal index, but emitted
// signed-then-base64 to avoid leaking an unobfuscated internal offset. An
// unsigned bare decimal is still accepted on input for compatibility; a
// cursor that fails verification or fails to parse clamps to 0.

func (m *Manager) signCursor(index int) string {
	raw := strconv.Itoa(index)
	mac := hmac.New(sha256.New, m.cursorKey)
	mac.Write([]byte(raw))
	sig := mac.Sum(nil)
	payload := raw + "." + base64.RawURLEncoding.EncodeToString(sig)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func (m *Manager) parseCursor(cursor string) int {
	if cursor == "" {
		return 0
	}
	if n, err := strconv.Atoi(cursor); err == nil && n >= 0 {
		return n
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0
	}
	parts := strings.SplitN(string(decoded), ".", 2)
	if len(parts) != 2 {
		return 0
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0
	}
	mac := hmac.New(sha256.New, m.cursorKey)
	mac.Write([]byte(parts[0]))
	expected := mac.Sum(nil)
	if !hmac.Equal(sig, expected) {
		return 0
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type listParams struct {
	Cursor string `json:"cursor"`
	Limit  int    `json:"limit"`
}

type listedResource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

func (m *Manager) list(params json.RawMessage) (any, error) {
	var p listParams
	if len(params) > 0 {
		_ = json.Unmarshal(params, &p)
	}
	limit := p.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.parseCursor(p.Cursor)
	total := len(m.order)
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	out := make([]listedResource, 0, end-start)
	for _, uri := range m.order[start:end] {
		r := m.byURI[uri]
		out = append(out, listedResource{URI: r.URI, Name: r.Name, Description: r.Description, MimeType: r.MimeType})
	}

	result := struct {
		Resources  []listedResource `json:"resources"`
		NextCursor string           `json:"nextCursor,omitempty"`
	}{Resources: out}

	if end < total {
		result.NextCursor = m.signCursor(end)
	}
	return result, nil
}

type readParams struct {
	URI string `json:"uri"`
}

type readContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

func (m *Manager) read(ctx context.Context, params json.RawMessage) (any, error) {
	var p readParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "Invalid params: "+err.Error())
	}

	m.mu.Lock()
	r, ok := m.byURI[p.URI]
	m.mu.Unlock()
	if !ok {
		return nil, protocol.NewError(protocol.CodeResourceNotFound, "Resource not found: "+p.URI)
	}

	var content Content
	var err error
	if r.Accessor != nil {
		content, err = r.Accessor(ctx)
		if err != nil {
			return nil, protocol.NewError(protocol.CodeInternalError, err.Error())
		}
	}

	rc := readContent{URI: r.URI, MimeType: r.MimeType}
	switch content.Kind {
	case Blob:
		rc.Blob = base64.StdEncoding.EncodeToString(content.Blob)
	default:
		rc.Text = content.Text
	}

	return struct {
		Contents []readContent `json:"contents"`
	}{Contents: []readContent{rc}}, nil
}

type listedTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

func (m *Manager) listTemplates() any {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]listedTemplate, 0, len(m.templateOrder))
	for _, uriTemplate := range m.templateOrder {
		t := m.templates[uriTemplate]
		out = append(out, listedTemplate{URITemplate: t.URITemplate, Name: t.Name, Description: t.Description, MimeType: t.MimeType})
	}
	return struct {
		ResourceTemplates []listedTemplate `json:"resourceTemplates"`
	}{ResourceTemplates: out}
}

type subscribeParams struct {
	URI string `json:"uri"`
}

func (m *Manager) subscribe(params json.RawMessage) (any, error) {
	var p subscribeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "Invalid params: "+err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byURI[p.URI]; !ok {
		return nil, protocol.NewError(protocol.CodeResourceNotFound, "Resource not found: "+p.URI)
	}
	m.subscriptions[p.URI]++
	return struct{}{}, nil
}

func (m *Manager) unsubscribe(params json.RawMessage) (any, error) {
	var p subscribeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "Invalid params: "+err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if count, ok := m.subscriptions[p.URI]; ok {
		if count <= 1 {
			delete(m.subscriptions, p.URI)
		} else {
			m.subscriptions[p.URI] = count - 1
		}
	}
	return struct{}{}, nil
}

// NotifyUpdated publishes notifications/resources/updated for uri iff uri
// currently has at least one active subscription.
func (m *Manager) NotifyUpdated(uri string) {
	m.mu.Lock()
	count := m.subscriptions[uri]
	m.mu.Unlock()

	if count <= 0 {
		return
	}
	m.bus.Publish(events.ResourcesUpdated, map[string]any{"uri": uri})
}
