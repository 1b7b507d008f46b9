package models

// ItemCounts represents per-status item totals for one owner
type ItemCounts struct {
	All       int64 `json:"all"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
}
