// Package snapshot writes and restores the end-of-session bar snapshot:
// a JSON map keyed by minute timestamp and symbol, used only to seed a
// restart. The engine never reads it back mid-session.
package snapshot

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"momentumsentry/bar"
)

// State is the on-disk shape: minute timestamp (RFC3339) -> symbol -> bar.
type State map[string]map[string]bar.Bar

// Build converts an aggregator's current snapshots into the on-disk shape.
func Build(snaps []bar.Snapshot) State {
	state := make(State)
	for _, s := range snaps {
		key := s.Bar.MinuteTS.Format(time.RFC3339)
		if _, ok := state[key]; !ok {
			state[key] = make(map[string]bar.Bar)
		}
		state[key][s.Symbol] = s.Bar
	}
	return state
}

// Write atomically persists the snapshot state as JSON.
func Write(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	log.Printf("✅ session snapshot written to %s (%d minutes)", path, len(state))
	return nil
}

// Read loads a snapshot file. A corrupted file is renamed to
// <path>.corrupt.<unix-nanos> and Read returns an empty state with no
// error — the caller starts a fresh session.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("⚠️  corrupted snapshot at %s, starting fresh: %v", path, err)
		corrupt := fmt.Sprintf("%s.corrupt.%d", path, time.Now().UnixNano())
		if renameErr := os.Rename(path, corrupt); renameErr != nil {
			log.Printf("⚠️  failed to rename corrupted snapshot: %v", renameErr)
		}
		return State{}, nil
	}
	return state, nil
}
