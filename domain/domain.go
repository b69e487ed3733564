package domain

import "encoding/json"

// Character is a player's pixel portrait as drawn in the character editor.
type Character struct {
	Pixels  []string `json:"pixels,omitempty"`
	DataURL string   `json:"dataURL,omitempty"`
}

type MutationOp string

const (
	OpPut    MutationOp = "put"
	OpDelete MutationOp = "delete"
	OpClear  MutationOp = "clear"
)

// DocumentMutation is one persisted change to a shared session document.
// Items are grouped by collection (e.g. "stroke", "message") and addressed
// by key inside it. OpClear drops the whole collection and ignores Key.
type DocumentMutation struct {
	Op         MutationOp
	Collection string
	Key        string
	Payload    json.RawMessage
}

// DocumentItem is a stored item, returned in insertion order.
type DocumentItem struct {
	Collection string
	Key        string
	Payload    json.RawMessage
}
