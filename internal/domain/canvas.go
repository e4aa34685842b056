package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CanvasContent is the drawing-library payload of a canvas slide: an opaque
// element list, the view state, and attached binary files keyed by file id.
type CanvasContent struct {
	Elements []json.RawMessage          `json:"elements"`
	AppState AppState                   `json:"appState"`
	Files    map[string]json.RawMessage `json:"files,omitempty"`
}

func EmptyCanvas() *CanvasContent {
	return &CanvasContent{
		Elements: []json.RawMessage{},
		AppState: AppState{},
	}
}

func (c *CanvasContent) Clone() *CanvasContent {
	cp := &CanvasContent{
		Elements: append([]json.RawMessage(nil), c.Elements...),
		AppState: c.AppState.clone(),
	}
	if c.Files != nil {
		cp.Files = make(map[string]json.RawMessage, len(c.Files))
		for k, v := range c.Files {
			cp.Files[k] = v
		}
	}
	return cp
}

// Collaborators is the identity-keyed collaborator set of the view state.
// The drawing library holds it as a Map in memory but any JSON round trip
// degrades it to a plain object, so this type pins down one in-memory shape
// (ordered association) and one wire shape (plain object) with explicit
// conversions between them.
type Collaborators struct {
	keys []string
	vals map[string]json.RawMessage
}

func (c *Collaborators) Set(key string, val json.RawMessage) {
	if c.vals == nil {
		c.vals = make(map[string]json.RawMessage)
	}
	if _, ok := c.vals[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.vals[key] = val
}

func (c *Collaborators) Get(key string) (json.RawMessage, bool) {
	v, ok := c.vals[key]
	return v, ok
}

func (c *Collaborators) Len() int { return len(c.keys) }

// Keys returns the collaborator identities in insertion order.
func (c *Collaborators) Keys() []string {
	return append([]string(nil), c.keys...)
}

func (c Collaborators) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(c.keys))
	for k, v := range c.vals {
		obj[k] = v
	}
	return json.Marshal(obj)
}

func (c *Collaborators) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("collaborators: %w", err)
	}
	c.keys = c.keys[:0]
	c.vals = make(map[string]json.RawMessage, len(obj))
	for k := range obj {
		c.keys = append(c.keys, k)
	}
	// JSON objects carry no order; sort so two round trips agree
	sort.Strings(c.keys)
	for _, k := range c.keys {
		c.vals[k] = obj[k]
	}
	return nil
}

func (c *Collaborators) clone() Collaborators {
	cp := Collaborators{}
	for _, k := range c.keys {
		cp.Set(k, c.vals[k])
	}
	return cp
}

// AppState is the drawing library's view state. Only the collaborators
// field is interpreted; every other key passes through untouched.
type AppState struct {
	Collaborators Collaborators
	extra         map[string]json.RawMessage
}

// Extra returns the opaque view-state value stored under key.
func (a *AppState) Extra(key string) (json.RawMessage, bool) {
	v, ok := a.extra[key]
	return v, ok
}

// SetExtra stores an opaque view-state value under key.
func (a *AppState) SetExtra(key string, val json.RawMessage) {
	if a.extra == nil {
		a.extra = make(map[string]json.RawMessage)
	}
	a.extra[key] = val
}

// ExtraKeys returns the opaque keys in sorted order.
func (a *AppState) ExtraKeys() []string {
	keys := make([]string, 0, len(a.extra))
	for k := range a.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a AppState) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(a.extra)+1)
	for k, v := range a.extra {
		obj[k] = v
	}
	collab, err := a.Collaborators.MarshalJSON()
	if err != nil {
		return nil, err
	}
	obj["collaborators"] = collab
	return json.Marshal(obj)
}

func (a *AppState) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("appState: %w", err)
	}
	a.extra = make(map[string]json.RawMessage, len(obj))
	a.Collaborators = Collaborators{}
	for k, v := range obj {
		if k == "collaborators" {
			if err := a.Collaborators.UnmarshalJSON(v); err != nil {
				return err
			}
			continue
		}
		a.extra[k] = v
	}
	return nil
}

func (a *AppState) clone() AppState {
	cp := AppState{Collaborators: a.Collaborators.clone()}
	if a.extra != nil {
		cp.extra = make(map[string]json.RawMessage, len(a.extra))
		for k, v := range a.extra {
			cp.extra[k] = v
		}
	}
	return cp
}

// MergeAppState overlays incoming onto base: incoming keys win, base keys
// absent from incoming survive. The collaborator set is taken from incoming
// whenever incoming carries one, re-normalised into the map shape.
func MergeAppState(base, incoming AppState) AppState {
	out := base.clone()
	for _, k := range incoming.ExtraKeys() {
		v, _ := incoming.Extra(k)
		out.SetExtra(k, v)
	}
	if incoming.Collaborators.Len() > 0 {
		out.Collaborators = incoming.Collaborators.clone()
	}
	return out
}
