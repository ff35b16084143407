package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// SentencePacker splits text at sentence boundaries and greedily packs the
// sentences into pieces no longer than targetSize characters. A sentence
// that alone exceeds the target is kept whole.
type SentencePacker struct {
	targetSize int
	splitter   *regexp.Regexp
}

func NewSentencePacker(targetSize int) *SentencePacker {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	return &SentencePacker{
		targetSize: targetSize,
		splitter:   regexp.MustCompile(`[.!?]+`),
	}
}

const sentenceJoiner = ". "

// Pack returns the packed pieces of text in original order.
func (p *SentencePacker) Pack(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) <= p.targetSize {
		return []string{trimmed}
	}

	var pieces []string
	var current strings.Builder
	currentLen := 0
	for _, sentence := range p.splitter.Split(trimmed, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		n := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+len(sentenceJoiner)+n > p.targetSize {
			pieces = append(pieces, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteString(sentenceJoiner)
			currentLen += len(sentenceJoiner)
		}
		current.WriteString(sentence)
		currentLen += n
	}
	if currentLen > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}
