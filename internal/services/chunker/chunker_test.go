package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandate-ai/mandate/internal/common"
)

func TestSizePolicy(t *testing.T) {
	tests := []struct {
		textLen int
		target  int
		overlap int
	}{
		{3000, 1200, 250},
		{5000, 1200, 250},
		{5001, 1800, 350},
		{20000, 1800, 350},
		{35000, 2500, 500},
		{50000, 2500, 500},
		{80000, 3000, 600},
	}
	for _, tt := range tests {
		target, overlap := sizePolicy(tt.textLen)
		assert.Equal(t, tt.target, target, "target for len %d", tt.textLen)
		assert.Equal(t, tt.overlap, overlap, "overlap for len %d", tt.textLen)
	}
}

func TestDetectSections(t *testing.T) {
	text := strings.Join([]string{
		"Preamble text here.",
		"Section 1.2 Eligibility",
		"Body of the section.",
		"Chapter 4",
		"More body.",
		"ELIGIBILITY CRITERIA:",
		"Even more body.",
		"3) Admission Process",
		"Part IV",
		"not 4.2 a header mid sentence",
	}, "\n")

	sections := detectSections(text)
	require.Len(t, sections, 5)
	assert.Equal(t, "Section 1.2 Eligibility", sections[0].header)
	assert.Equal(t, "Chapter 4", sections[1].header)
	assert.Equal(t, "ELIGIBILITY CRITERIA:", sections[2].header)
	assert.Equal(t, "3) Admission Process", sections[3].header)
	assert.Equal(t, "Part IV", sections[4].header)
}

func TestChunk_SmallTextSingleChunk(t *testing.T) {
	svc := NewService(common.GetLogger())
	chunks := svc.Chunk("doc_1", "A short circular about fees.")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.False(t, chunks[0].HasSection)
}

func TestChunk_EmptyText(t *testing.T) {
	svc := NewService(common.GetLogger())
	assert.Nil(t, svc.Chunk("doc_1", "   \n  "))
}

func TestChunk_SentenceBreaks(t *testing.T) {
	svc := NewService(common.GetLogger())
	sentence := "The regulation applies to all universities in the state. "
	text := strings.Repeat(sentence, 60) // ~3480 chars, tier 1

	chunks := svc.Chunk("doc_1", text)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(strings.TrimRight(chunk.Text, " \n"), "."),
			"chunk %d should end at a sentence boundary", i)
	}

	// Consecutive chunks overlap
	for i := 1; i < len(chunks); i++ {
		assert.Less(t, chunks[i].CharOffsetStart, chunks[i-1].CharOffsetEnd)
	}
}

func TestChunk_SectionHeadersGovernChunks(t *testing.T) {
	svc := NewService(common.GetLogger())

	body := strings.Repeat("Clause text sentence here. ", 50) // ~1350 chars
	text := "Section 1 Scope\n" + body + "\nSection 2 Definitions\n" + body

	chunks := svc.Chunk("doc_1", text)
	require.NotEmpty(t, chunks)

	assert.True(t, chunks[0].HasSection)
	assert.Equal(t, "Section 1 Scope", chunks[0].SectionHeader)

	last := chunks[len(chunks)-1]
	assert.Equal(t, "Section 2 Definitions", last.SectionHeader)
}

func TestChunk_OverlapDoesNotCrossSection(t *testing.T) {
	svc := NewService(common.GetLogger())

	body := strings.Repeat("Clause text sentence here. ", 45)
	text := "Section 1 Scope\n" + body + "\nSection 2 Definitions\n" + body

	chunks := svc.Chunk("doc_1", text)
	secOffset := strings.Index(text, "Section 2")

	for i := 1; i < len(chunks); i++ {
		start := chunks[i].CharOffsetStart
		if start >= secOffset {
			// A chunk inside section 2 must not start before its header
			assert.GreaterOrEqual(t, start, secOffset)
		}
	}
}

func TestChunk_OffsetsCoverText(t *testing.T) {
	svc := NewService(common.GetLogger())
	text := strings.Repeat("Some policy sentence ends here. ", 200)

	chunks := svc.Chunk("doc_1", strings.TrimSpace(text))
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].CharOffsetStart)
	assert.Equal(t, len(strings.TrimSpace(text)), chunks[len(chunks)-1].CharOffsetEnd)

	for _, chunk := range chunks {
		assert.Equal(t, chunk.Text, strings.TrimSpace(text)[chunk.CharOffsetStart:chunk.CharOffsetEnd])
	}
}
