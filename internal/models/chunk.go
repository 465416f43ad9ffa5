package models

// Chunk is one contiguous span of extracted text, content-addressed
// by (doc_id, chunk_index). Recomputed only on re-embed.
type Chunk struct {
	DocID           string `json:"doc_id"`
	ChunkIndex      int    `json:"chunk_index"`
	Text            string `json:"text"`
	SectionHeader   string `json:"section_header,omitempty"`
	HasSection      bool   `json:"has_section"`
	CharOffsetStart int    `json:"char_offset_start"`
	CharOffsetEnd   int    `json:"char_offset_end"`
}

// ChunkKey identifies a chunk in the vector index.
type ChunkKey struct {
	DocID      string `json:"doc_id"`
	ChunkIndex int    `json:"chunk_index"`
}
