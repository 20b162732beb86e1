package processor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	ModeWindow    = "window"
	ModeRecursive = "recursive"
)

// DefaultSeparators are tried in order when looking for a cut point.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

type ProcessorConfig struct {
	ChunkSize          int
	ChunkOverlap       int
	Mode               string
	Separators         []string
	CollapseWhitespace bool
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) (Processor, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.Mode == "" {
		config.Mode = ModeWindow
	}
	if len(config.Separators) == 0 {
		config.Separators = DefaultSeparators
	}

	if config.ChunkSize < 0 {
		return Processor{}, fmt.Errorf("chunk size must be positive")
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		return Processor{}, fmt.Errorf("chunk overlap must be non-negative and less than chunk size")
	}
	if config.Mode != ModeWindow && config.Mode != ModeRecursive {
		return Processor{}, fmt.Errorf("unknown split mode %q", config.Mode)
	}

	return Processor{
		config: config,
	}, nil
}

func (p Processor) Overlap() int {
	return p.config.ChunkOverlap
}

// Split cuts text into chunks of at most ChunkSize runes.
func (p Processor) Split(text string) ([]string, error) {
	if p.config.CollapseWhitespace {
		text = cleanText(text)
	}
	if text == "" {
		return nil, nil
	}

	if p.config.Mode == ModeRecursive {
		separators := append([]string{}, p.config.Separators...)
		splitter := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(p.config.ChunkSize),
			textsplitter.WithChunkOverlap(p.config.ChunkOverlap),
			textsplitter.WithSeparators(append(separators, "")),
		)
		chunks, err := splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("failed to split text: %w", err)
		}
		return chunks, nil
	}

	return p.splitWindow(text), nil
}

// splitWindow moves a ChunkSize window over the text. Every chunk after the
// first starts with exactly the last ChunkOverlap runes of the one before it.
func (p Processor) splitWindow(text string) []string {
	if utf8.RuneCountInString(text) <= p.config.ChunkSize {
		return []string{text}
	}

	runes := []rune(text)
	size, overlap := p.config.ChunkSize, p.config.ChunkOverlap

	var chunks []string
	start := 0
	for {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		end = p.cutPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:end]))
		start = end - overlap
	}

	return chunks
}

// cutPoint returns the end of the last separator inside the second half of
// the window, or end itself. The result always leaves room for progress
// past the overlap.
func (p Processor) cutPoint(runes []rune, start, end int) int {
	lo := start + p.config.ChunkSize/2
	if floor := start + p.config.ChunkOverlap + 1; lo < floor {
		lo = floor
	}

	for _, sep := range p.config.Separators {
		s := []rune(sep)
		for cut := end; cut >= lo && cut >= len(s); cut-- {
			if hasSuffixAt(runes, cut, s) {
				return cut
			}
		}
	}

	return end
}

func hasSuffixAt(runes []rune, cut int, sep []rune) bool {
	if len(sep) == 0 {
		return false
	}
	for i := range sep {
		if runes[cut-len(sep)+i] != sep[i] {
			return false
		}
	}
	return true
}

func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
