// Package remote deploys the stats agent to a remote host over the live
// terminal link and runs sentinel-delimited commands on it. Everything
// here is best-effort: any failure or timeout falls back to letting the
// user's command run unmodified on the remote shell.
package remote

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"dais/internal/analyze"
	"dais/internal/listing"
)

// SchemaVersion identifies the wire record layout. Bump when fields
// change shape; the parser rejects nothing by version yet but the schema
// is published via `dais schema`.
const SchemaVersion = 1

// Payload framing: bell-delimited sentinel tokens, distinct from any JSON
// byte sequence, mark agent liveness and completion.
const (
	ReadySentinel = "\x07DAIS_READY\x07"
	EndSentinel   = "\x07DAIS_END\x07"
)

// Record is one remote listing item. Fields mirror analyze.Stats plus the
// entry name.
type Record struct {
	Name        string `json:"name"`
	IsDir       bool   `json:"is_dir"`
	Size        int64  `json:"size"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	Count       int    `json:"count"`
	IsText      bool   `json:"is_text"`
	IsData      bool   `json:"is_data"`
	IsEstimated bool   `json:"is_estimated"`
}

// Item converts a Record into a listing pipeline input.
func (r Record) Item() listing.Item {
	return listing.Item{
		Name: r.Name,
		Stats: analyze.Stats{
			Valid:     true,
			IsDir:     r.IsDir,
			SizeBytes: r.Size,
			Rows:      r.Rows,
			MaxCols:   r.Cols,
			ItemCount: r.Count,
			IsText:    r.IsText,
			IsData:    r.IsData,
			Estimated: r.IsEstimated,
		},
	}
}

// FromStats builds a Record from a local analysis, used by the agent.
func FromStats(name string, st analyze.Stats) Record {
	return Record{
		Name:        name,
		IsDir:       st.IsDir,
		Size:        st.SizeBytes,
		Rows:        st.Rows,
		Cols:        st.MaxCols,
		Count:       st.ItemCount,
		IsText:      st.IsText,
		IsData:      st.IsData,
		IsEstimated: st.Estimated,
	}
}

// RenderPayload frames records the way the agent emits them.
func RenderPayload(records []Record) (string, error) {
	b, err := sonic.Marshal(records)
	if err != nil {
		return "", err
	}
	return ReadySentinel + string(b) + EndSentinel, nil
}

// ParsePayload extracts the record array from raw captured output. The
// capture may carry echo noise and escape sequences around the framed
// JSON; anything outside the sentinels is ignored.
func ParsePayload(raw string) ([]Record, error) {
	start := strings.Index(raw, ReadySentinel)
	if start < 0 {
		return nil, fmt.Errorf("agent payload: ready sentinel not found")
	}
	rest := raw[start+len(ReadySentinel):]
	end := strings.Index(rest, EndSentinel)
	if end < 0 {
		return nil, fmt.Errorf("agent payload: end sentinel not found")
	}
	body := strings.TrimSpace(rest[:end])
	var records []Record
	if err := sonic.Unmarshal([]byte(body), &records); err != nil {
		return nil, fmt.Errorf("agent payload: %w", err)
	}
	return records, nil
}
