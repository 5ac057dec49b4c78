// Package snapshot persists trainer states as canonical CBOR.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"github.com/wildfunctions/linear_gp/pkg/trainer"
)

// Version is written into every snapshot and checked on decode.
const Version = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

type envelope struct {
	Version int           `cbor:"1,keyasint"`
	State   trainer.State `cbor:"2,keyasint"`
}

// Encode serializes s. Equal states encode to identical bytes.
func Encode(s trainer.State) ([]byte, error) {
	return encMode.Marshal(envelope{Version: Version, State: s})
}

// Decode deserializes a state written by Encode.
func Decode(data []byte) (trainer.State, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return trainer.State{}, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	if env.Version != Version {
		return trainer.State{}, fmt.Errorf("snapshot: version %d, want %d", env.Version, Version)
	}
	return env.State, nil
}

// Save writes s to path, replacing any existing file only once the new one is
// fully written.
func Save(path string, s trainer.State) error {
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// Load reads a state saved by Save.
func Load(path string) (trainer.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return trainer.State{}, fmt.Errorf("snapshot: %w", err)
	}
	return Decode(data)
}
