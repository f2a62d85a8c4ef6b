package snapshot

import (
	"encoding/json"
	"fmt"
)

// DecodeRaw parses a raw snapshot payload. Malformed JSON is an error; the
// payload will never parse differently on retry, so callers treat it as
// fatal. Missing fields are not errors: identity falls back to the sentinel
// values and absent lists stay empty, so code past this boundary never checks
// field presence again.
func DecodeRaw(data []byte) (*Raw, error) {
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing raw snapshot: %w", err)
	}
	applyDefaults(&raw)
	return &raw, nil
}

// DecodeProcessed parses a processed snapshot payload.
func DecodeProcessed(data []byte) (*Processed, error) {
	var p Processed
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing processed snapshot: %w", err)
	}
	return &p, nil
}

func applyDefaults(raw *Raw) {
	if raw.UserID == "" {
		raw.UserID = UnknownUserID
	}
	if raw.DisplayName == "" {
		raw.DisplayName = UnknownDisplayName
	}
	for i := range raw.TopArtists {
		if raw.TopArtists[i].Genres == nil {
			raw.TopArtists[i].Genres = []string{}
		}
	}
}
