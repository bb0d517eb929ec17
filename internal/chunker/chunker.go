package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChunkConfig is returned when the overlap does not leave room for the window to advance.
var ErrInvalidChunkConfig = errors.New("invalid chunk config")

// DefaultSeparators lists natural boundaries from strongest to weakest.
var DefaultSeparators = []string{
	"\n\n",
	"\n",
	"。",
	". ",
	"! ",
	"? ",
	"; ",
	", ",
	" ",
}

// Options controls how text is chunked. Lengths are counted in characters (runes).
type Options struct {
	MaxChars   int
	Overlap    int
	Separators []string
}

// Chunk represents a slice of the document text.
// Start and End are rune offsets into the source text; End is exclusive.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Validate reports ErrInvalidChunkConfig for unusable options.
func (o Options) Validate() error {
	if o.MaxChars <= 0 {
		return fmt.Errorf("%w: max length must be positive, got %d", ErrInvalidChunkConfig, o.MaxChars)
	}
	if o.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidChunkConfig, o.Overlap)
	}
	if o.Overlap >= o.MaxChars {
		return fmt.Errorf("%w: overlap %d must be smaller than max length %d", ErrInvalidChunkConfig, o.Overlap, o.MaxChars)
	}
	return nil
}

// ChunkText splits text into a sliding window of chunks. Every chunk after the first
// starts exactly Overlap characters before the end of the previous one. Within each
// window the cut is moved back to the strongest separator found in the second half of
// the window, as long as the remaining text still fits in the minimum number of chunks
// (see MinChunks). Words are only split when no such boundary exists.
func ChunkText(text string, opts Options) ([]Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	seps := opts.Separators
	if seps == nil {
		seps = DefaultSeparators
	}

	runes := []rune(text)
	n := len(runes)
	if n <= opts.MaxChars {
		return []Chunk{{Index: 0, Text: text, Start: 0, End: n}}, nil
	}

	step := opts.MaxChars - opts.Overlap
	total := MinChunks(n, opts)
	chunks := make([]Chunk, 0, total)
	start := 0
	for {
		end := start + opts.MaxChars
		if end >= n {
			end = n
		} else {
			// Ending before floor would push the last chunk past the end of the text.
			floor := n - (total-1-len(chunks))*step
			end = cutPoint(runes, start, end, opts.Overlap, floor, seps)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == n {
			break
		}
		start = end - opts.Overlap
	}
	return chunks, nil
}

// MinChunks is the smallest number of chunks that can cover n characters with opts:
// ceil((n-Overlap) / (MaxChars-Overlap)), or 1 when the text fits in one window.
// ChunkText always produces exactly this many.
func MinChunks(n int, opts Options) int {
	if n <= opts.MaxChars {
		return 1
	}
	step := opts.MaxChars - opts.Overlap
	return (n - opts.Overlap + step - 1) / step
}

// cutPoint picks the end of the window [start, limit). Separator cuts are accepted only
// in the second half of the window and at or after floor; otherwise limit is returned.
func cutPoint(runes []rune, start, limit, overlap, floor int, seps []string) int {
	minEnd := max(start+overlap+(limit-start-overlap+1)/2, floor)
	if minEnd >= limit {
		return limit
	}
	window := string(runes[start:limit])
	for _, sep := range seps {
		if sep == "" {
			continue
		}
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		end := start + len([]rune(window[:idx+len(sep)]))
		if end >= minEnd && end <= limit {
			return end
		}
	}
	return limit
}

// Reassemble concatenates chunks while dropping the overlapping prefix of each chunk.
// For chunks produced by ChunkText it returns the original text.
func Reassemble(chunks []Chunk) string {
	var b strings.Builder
	prevEnd := 0
	for i, c := range chunks {
		runes := []rune(c.Text)
		skip := 0
		if i > 0 {
			skip = prevEnd - c.Start
		}
		if skip < 0 {
			skip = 0
		}
		if skip > len(runes) {
			skip = len(runes)
		}
		b.WriteString(string(runes[skip:]))
		prevEnd = c.End
	}
	return b.String()
}
