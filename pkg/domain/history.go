package domain

import (
	"fmt"
	"time"
)

// HistoryRecord is one immutable, append-only interaction entry.
type HistoryRecord struct {
	ID           int64          `json:"id"`
	Ref          string         `json:"ref"`
	Keyword      string         `json:"keyword"`
	Answer       string         `json:"answer"`
	RefSerialize string         `json:"refSerialize"`
	Phone        string         `json:"phone"`
	Options      map[string]any `json:"options"`
	CreatedAt    time.Time      `json:"created_at"`
}

// SerializeRef returns the stable reference of a step within a node.
func SerializeRef(node string, step int) string {
	return fmt.Sprintf("%s#%d", node, step)
}
