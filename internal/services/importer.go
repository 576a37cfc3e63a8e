package services

import (
	"strings"
	"unicode/utf8"
)

const (
	minNoteChars = 40
	maxNoteChars = 2000
)

// SplitIntoNotes breaks extracted study-guide text into note-sized chunks.
// Paragraphs are the unit; consecutive short paragraphs are merged, and
// oversized ones are split on sentence boundaries.
func SplitIntoNotes(text string) []string {
	paragraphs := splitParagraphs(text)

	var notes []string
	var pending strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(pending.String())
		pending.Reset()
		if utf8.RuneCountInString(chunk) >= minNoteChars {
			notes = append(notes, chunk)
		}
	}

	for _, para := range paragraphs {
		if utf8.RuneCountInString(para) > maxNoteChars {
			flush()
			notes = append(notes, splitLongParagraph(para)...)
			continue
		}

		if pending.Len() > 0 {
			if pending.Len()+len(para) > maxNoteChars {
				flush()
			} else {
				pending.WriteString("\n\n")
			}
		}
		pending.WriteString(para)

		if utf8.RuneCountInString(pending.String()) >= minNoteChars*4 {
			flush()
		}
	}
	flush()

	return notes
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}

// splitLongParagraph cuts an oversized paragraph on sentence boundaries,
// keeping each piece under the note size cap.
func splitLongParagraph(para string) []string {
	var pieces []string
	var current strings.Builder

	for _, sentence := range splitSentences(para) {
		if current.Len() > 0 && current.Len()+len(sentence) > maxNoteChars {
			piece := strings.TrimSpace(current.String())
			if utf8.RuneCountInString(piece) >= minNoteChars {
				pieces = append(pieces, piece)
			}
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}

	piece := strings.TrimSpace(current.String())
	if utf8.RuneCountInString(piece) >= minNoteChars {
		pieces = append(pieces, piece)
	}
	return pieces
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
