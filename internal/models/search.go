package models

// SearchResult pairs a chunk with its cosine similarity score for one query.
// Transient - never persisted. Score is in [-1, 1], higher is more similar.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// ResultPage is one window of the full ranked result set.
// TotalCount and TotalPages always describe the complete deduplicated
// ranking, even when the requested page is past the end of the data.
type ResultPage struct {
	Results    []SearchResult `json:"results"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalCount int            `json:"total_count"`
	TotalPages int            `json:"total_pages"`
}
