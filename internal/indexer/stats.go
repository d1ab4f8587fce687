package indexer

import "time"

// BuildStats summarizes a completed index rebuild.
type BuildStats struct {
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks"`
	Mode      string        `json:"mode"`
	Dimension int           `json:"dimension"`
	Duration  time.Duration `json:"-"`
}
