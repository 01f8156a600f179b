package types

import (
	"time"

	"github.com/manu3618/reflecto/internal/mirror"
)

// Stats summarises one generation cycle.
type Stats struct {
	TotalMirrors int       `json:"total_mirrors"`
	Retained     int       `json:"retained"`
	Probed       int       `json:"probed"`
	SortedBy     string    `json:"sorted_by"`
	Source       string    `json:"source"`
	GenerationMs int64     `json:"generation_ms"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Result is a point-in-time generation result: the ranked mirrors, the
// rendered outputs and the cycle statistics.
type Result struct {
	Mirrors    []mirror.Mirror `json:"mirrors"`
	Mirrorlist string          `json:"mirrorlist"`
	Countries  string          `json:"countries"`
	Stats      Stats           `json:"stats"`
	Updated    time.Time       `json:"updated"`
}
