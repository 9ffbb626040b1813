package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"sapauth/pkg/schema"
)

// serializedSnapshot is the transfer form of a Snapshot. Entities travel for
// consumers that only read them; indices are rebuilt from Raw on arrival.
type serializedSnapshot struct {
	Users  []User        `json:"users"`
	Roles  []Role        `json:"roles"`
	TCodes []TCode       `json:"tCodes"`
	Window *Window       `json:"window,omitempty"`
	Now    time.Time     `json:"now"`
	Rules  Rules         `json:"rules"`
	Raw    schema.Tables `json:"raw"`
}

// SerializeSnapshot converts a snapshot to JSON for transfer between workers
// or for caching on disk.
func SerializeSnapshot(s *Snapshot) ([]byte, error) {
	data, err := json.Marshal(serializedSnapshot{
		Users:  s.Users,
		Roles:  s.Roles,
		TCodes: s.TCodes,
		Window: s.Window,
		Now:    s.Now,
		Rules:  s.Rules,
		Raw:    s.Raw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	return data, nil
}

// DeserializeSnapshot reconstructs a snapshot by re-deriving from the raw
// tables with the recorded reference time, rules and window. The result is
// identical to the snapshot that was serialized.
func DeserializeSnapshot(data []byte) (*Snapshot, error) {
	var ss serializedSnapshot
	if err := json.Unmarshal(data, &ss); err != nil {
		return nil, fmt.Errorf("failed to deserialize snapshot: %w", err)
	}
	return Derive(ss.Raw, Options{Window: ss.Window, Now: ss.Now, Rules: ss.Rules}), nil
}
