package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// sectionPatterns recognize structural headers at line starts. Policy
// documents from ministries follow a small set of numbering styles.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^Section \d+(\.\d+)*\b.*$`),
	regexp.MustCompile(`^Chapter \d+\b.*$`),
	regexp.MustCompile(`^Article \d+\b.*$`),
	regexp.MustCompile(`^Part [IVXLC]+\b.*$`),
	regexp.MustCompile(`^\d+(\.\d+)* [A-Z][^\n]*$`),
	regexp.MustCompile(`^\d+\) [A-Z][^\n]*$`),
	regexp.MustCompile(`^[A-Z][A-Z0-9 \t&,()./-]{2,}:$`),
}

// sizeTier maps document length to chunk target and overlap
type sizeTier struct {
	maxLen  int
	target  int
	overlap int
}

var sizeTiers = []sizeTier{
	{5000, 1200, 250},
	{20000, 1800, 350},
	{50000, 2500, 500},
}

const (
	defaultTarget  = 3000
	defaultOverlap = 600
)

type section struct {
	offset int
	header string
}

// Service splits extracted text into overlapping chunks that respect
// section boundaries.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a chunker
func NewService(logger arbor.ILogger) interfaces.Chunker {
	return &Service{logger: logger}
}

// sizePolicy returns the target size and overlap for a document length
func sizePolicy(textLen int) (int, int) {
	for _, tier := range sizeTiers {
		if textLen <= tier.maxLen {
			return tier.target, tier.overlap
		}
	}
	return defaultTarget, defaultOverlap
}

// detectSections scans line starts for structural headers
func detectSections(text string) []section {
	var sections []section
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimRight(line, " \t")
		for _, pattern := range sectionPatterns {
			if pattern.MatchString(trimmed) {
				sections = append(sections, section{
					offset: offset,
					header: strings.TrimSpace(trimmed),
				})
				break
			}
		}
		offset += len(line) + 1
	}
	return sections
}

// Chunk splits text into section-aware chunks with overlap.
func (s *Service) Chunk(docID, text string) []models.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	target, overlap := sizePolicy(len(text))
	sections := detectSections(text)

	var chunks []models.Chunk
	start := 0
	for start < len(text) {
		end := s.selectBreak(text, sections, start, target)

		header, hasSection := governingSection(sections, start)
		chunks = append(chunks, models.Chunk{
			DocID:           docID,
			ChunkIndex:      len(chunks),
			Text:            text[start:end],
			SectionHeader:   header,
			HasSection:      hasSection,
			CharOffsetStart: start,
			CharOffsetEnd:   end,
		})

		if end >= len(text) {
			break
		}

		next := end - overlap
		// Overlap must not reach back across a section boundary, or the
		// header text would be duplicated into the next chunk.
		for _, sec := range sections {
			if sec.offset >= next && sec.offset < end {
				next = sec.offset
				break
			}
		}
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// selectBreak picks the end offset for a chunk starting at start.
// Preference order: a section boundary in the upper half of the window,
// then the sentence boundary nearest the ideal end, then the ideal end.
func (s *Service) selectBreak(text string, sections []section, start, target int) int {
	idealEnd := start + target
	if idealEnd >= len(text) {
		return len(text)
	}
	lowerBound := start + target/2

	best := -1
	for _, sec := range sections {
		if sec.offset > lowerBound && sec.offset <= idealEnd && sec.offset > best {
			best = sec.offset
		}
	}
	if best > 0 {
		return best
	}

	if sentence := sentenceBreakNear(text, lowerBound, idealEnd); sentence > 0 {
		return sentence
	}

	return runeAligned(text, idealEnd)
}

// sentenceBreakNear finds the sentence end closest to idealEnd within
// (lowerBound, idealEnd].
func sentenceBreakNear(text string, lowerBound, idealEnd int) int {
	for i := idealEnd - 1; i > lowerBound; i-- {
		c := text[i]
		if c != '.' && c != '?' && c != '!' {
			continue
		}
		if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t') {
			return i + 1
		}
	}
	return -1
}

// runeAligned moves offset back to the nearest rune start so a hard
// break never splits a multi-byte character.
func runeAligned(text string, offset int) int {
	for offset > 0 && offset < len(text) && !utf8.RuneStart(text[offset]) {
		offset--
	}
	return offset
}

// governingSection returns the header of the last section at or before
// the chunk start.
func governingSection(sections []section, start int) (string, bool) {
	header := ""
	found := false
	for _, sec := range sections {
		if sec.offset <= start {
			header = sec.header
			found = true
		} else {
			break
		}
	}
	return header, found
}
