// Package persistence holds the document codec shared by every Store
// implementation. The collection is persisted as a single JSON array of
// students, the same shape the editor has always written.
package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/archivo-trayectoria/trayectoria/internal/domain/shared"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
)

// Encode serialises the collection. A nil collection is written as [].
func Encode(c trajectory.Collection) ([]byte, error) {
	if c == nil {
		c = trajectory.Collection{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return data, nil
}

// Decode parses a persisted document. Empty input and JSON null decode to an
// empty collection; anything else that is not an array of students is
// reported as shared.ErrMalformedState.
func Decode(data []byte) (trajectory.Collection, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return trajectory.Collection{}, nil
	}

	var c trajectory.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedState, err)
	}
	if c == nil {
		c = trajectory.Collection{}
	}
	return c, nil
}
