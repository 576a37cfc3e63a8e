package services

import (
	"strings"
	"testing"
)

func TestSplitIntoNotesParagraphs(t *testing.T) {
	text := "The Tanium client maintains a persistent connection to its parent in the linear chain, registering with the server every few minutes.\n\n" +
		"Sensors are scripts executed on endpoints to answer questions. Results are aggregated up the chain before reaching the server, which keeps bandwidth usage flat regardless of endpoint count."

	notes := SplitIntoNotes(text)
	if len(notes) == 0 {
		t.Fatal("expected at least one note")
	}
	for _, n := range notes {
		if len(n) > maxNoteChars {
			t.Errorf("note exceeds size cap: %d chars", len(n))
		}
	}
}

func TestSplitIntoNotesDropsTinyFragments(t *testing.T) {
	notes := SplitIntoNotes("Page 3\n\nOK\n\n")
	if len(notes) != 0 {
		t.Fatalf("expected fragments below the minimum to be dropped, got %d notes", len(notes))
	}
}

func TestSplitIntoNotesSplitsLongParagraph(t *testing.T) {
	sentence := "Deploying a package through Tanium requires targeting a computer group and scheduling the action window. "
	long := strings.Repeat(sentence, 40)

	notes := SplitIntoNotes(long)
	if len(notes) < 2 {
		t.Fatalf("expected long paragraph to split into multiple notes, got %d", len(notes))
	}
	for i, n := range notes {
		if len(n) > maxNoteChars {
			t.Errorf("note %d exceeds size cap: %d chars", i, len(n))
		}
	}
}

func TestSplitIntoNotesEmptyInput(t *testing.T) {
	if notes := SplitIntoNotes("   \n\n  "); len(notes) != 0 {
		t.Fatalf("expected no notes from blank input, got %d", len(notes))
	}
}
