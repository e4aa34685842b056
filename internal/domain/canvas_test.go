package domain

import (
	"encoding/json"
	"testing"
)

func TestCollaboratorsRoundTripEmpty(t *testing.T) {
	var c Collaborators

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("empty collaborators should serialize to {}, got %s", data)
	}

	var back Collaborators
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Len() != 0 {
		t.Fatalf("expected 0 collaborators after round trip, got %d", back.Len())
	}
}

func TestCollaboratorsRoundTripNonEmpty(t *testing.T) {
	var c Collaborators
	c.Set("socket-a", json.RawMessage(`{"username":"alice"}`))
	c.Set("socket-b", json.RawMessage(`{"username":"bob"}`))

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Collaborators
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Len() != 2 {
		t.Fatalf("expected 2 collaborators, got %d", back.Len())
	}
	v, ok := back.Get("socket-a")
	if !ok {
		t.Fatal("socket-a lost in round trip")
	}
	var entry struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(v, &entry); err != nil || entry.Username != "alice" {
		t.Fatalf("collaborator value corrupted: %s (err %v)", v, err)
	}
}

func TestAppStateKeepsOpaqueKeys(t *testing.T) {
	raw := []byte(`{"viewBackgroundColor":"#fff","zoom":{"value":1.5},"collaborators":{"s1":{"username":"x"}}}`)

	var st AppState
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Collaborators.Len() != 1 {
		t.Fatalf("expected 1 collaborator, got %d", st.Collaborators.Len())
	}
	if _, ok := st.Extra("zoom"); !ok {
		t.Fatal("zoom dropped")
	}

	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back AppState
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if v, _ := back.Extra("viewBackgroundColor"); string(v) != `"#fff"` {
		t.Fatalf("viewBackgroundColor corrupted: %s", v)
	}
	if back.Collaborators.Len() != 1 {
		t.Fatal("collaborators lost through double round trip")
	}
}

func TestMergeAppStateIncomingWins(t *testing.T) {
	var base AppState
	base.SetExtra("viewBackgroundColor", json.RawMessage(`"#fff"`))
	base.SetExtra("gridSize", json.RawMessage(`20`))
	base.Collaborators.Set("old", json.RawMessage(`{}`))

	var incoming AppState
	incoming.SetExtra("viewBackgroundColor", json.RawMessage(`"#000"`))
	incoming.Collaborators.Set("new", json.RawMessage(`{}`))

	out := MergeAppState(base, incoming)

	if v, _ := out.Extra("viewBackgroundColor"); string(v) != `"#000"` {
		t.Fatalf("incoming key should win, got %s", v)
	}
	if _, ok := out.Extra("gridSize"); !ok {
		t.Fatal("base-only key should survive")
	}
	if _, ok := out.Collaborators.Get("new"); !ok {
		t.Fatal("incoming collaborators should replace base set")
	}
	if _, ok := out.Collaborators.Get("old"); ok {
		t.Fatal("stale collaborator survived merge")
	}
}

func TestMergeAppStateKeepsBaseCollaboratorsWhenIncomingEmpty(t *testing.T) {
	var base AppState
	base.Collaborators.Set("s1", json.RawMessage(`{}`))

	out := MergeAppState(base, AppState{})
	if out.Collaborators.Len() != 1 {
		t.Fatal("empty incoming set must not wipe existing collaborators")
	}
}
