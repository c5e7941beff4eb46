package dto

// VoteRequest sets the caller's vote on an entry.
type VoteRequest struct {
	Type string `json:"type" enum:"up,down" doc:"Vote direction"`
}
