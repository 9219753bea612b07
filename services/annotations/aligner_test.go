package annotations

import (
	"testing"

	"github.com/LukeR5776/LyricAnalyzer/services/genius"
)

func TestAlignExactMatch(t *testing.T) {
	lyrics := "Line one\nLine two\nLine three"
	annotations := []genius.Annotation{
		{ID: 1, Fragment: "Line two", LineNumber: -1},
		{ID: 2, Fragment: "nonexistent", LineNumber: -1},
	}

	aligned := Align(lyrics, annotations)

	if aligned[0].LineNumber != 2 {
		t.Errorf("Expected line 2, got %d", aligned[0].LineNumber)
	}
	if aligned[0].LineMatchMethod != MethodMatched {
		t.Errorf("Expected method matched, got %q", aligned[0].LineMatchMethod)
	}
	if aligned[1].LineNumber != -1 {
		t.Errorf("Expected sentinel -1 for unmatched fragment, got %d", aligned[1].LineNumber)
	}
	if aligned[1].LineMatchMethod != MethodFailed {
		t.Errorf("Expected method failed, got %q", aligned[1].LineMatchMethod)
	}
}

func TestAlignCaseInsensitive(t *testing.T) {
	aligned := Align("HELLO DARKNESS\nMy old friend", []genius.Annotation{
		{Fragment: "my old friend", LineNumber: -1},
	})
	if aligned[0].LineNumber != 2 {
		t.Errorf("Expected case-insensitive match on line 2, got %d", aligned[0].LineNumber)
	}
}

func TestAlignPrefersRangeContent(t *testing.T) {
	lyrics := "Line one\nLine two\nLine three"
	aligned := Align(lyrics, []genius.Annotation{
		{Fragment: "Line three", RangeContent: "Line one", LineNumber: -1},
	})
	if aligned[0].LineNumber != 1 {
		t.Errorf("Expected range content preferred over fragment, got line %d", aligned[0].LineNumber)
	}
}

func TestAlignAnnotationSubstringOfLine(t *testing.T) {
	lyrics := "Yesterday, all my troubles seemed so far away"
	aligned := Align(lyrics, []genius.Annotation{
		{Fragment: "all my troubles", LineNumber: -1},
	})
	if aligned[0].LineNumber != 1 {
		t.Errorf("Expected substring tier to match line 1, got %d", aligned[0].LineNumber)
	}
	if aligned[0].LineMatchMethod != MethodMatched {
		t.Errorf("Expected method matched, got %q", aligned[0].LineMatchMethod)
	}
}

func TestAlignShortFragmentNotSubstringMatched(t *testing.T) {
	// 5 characters or fewer would match almost anything as a substring.
	aligned := Align("Yesterday, all my troubles", []genius.Annotation{
		{Fragment: "my", LineNumber: -1},
	})
	if aligned[0].LineNumber != -1 {
		t.Errorf("Expected short fragment rejected, got line %d", aligned[0].LineNumber)
	}
}

func TestAlignLineSubstringOfAnnotation(t *testing.T) {
	lyrics := "Oh, I believe\nIn yesterday"
	aligned := Align(lyrics, []genius.Annotation{
		{Fragment: "Oh, I believe in yesterday and all it stood for", LineNumber: -1},
	})
	if aligned[0].LineNumber != 1 {
		t.Errorf("Expected line-in-annotation tier to match line 1, got %d", aligned[0].LineNumber)
	}
}

func TestAlignNoText(t *testing.T) {
	aligned := Align("Line one", []genius.Annotation{
		{ID: 5, LineNumber: -1},
	})
	if aligned[0].LineNumber != -1 {
		t.Errorf("Expected sentinel -1 without text, got %d", aligned[0].LineNumber)
	}
	if aligned[0].LineMatchMethod != MethodNoText {
		t.Errorf("Expected method no_text, got %q", aligned[0].LineMatchMethod)
	}
}

func TestAlignSkipsBlankLinesInNumbering(t *testing.T) {
	lyrics := "Line one\n\nLine two"
	aligned := Align(lyrics, []genius.Annotation{
		{Fragment: "Line two", LineNumber: -1},
	})
	if aligned[0].LineNumber != 2 {
		t.Errorf("Expected blank lines excluded from numbering, got %d", aligned[0].LineNumber)
	}
}

func TestAlignFirstMatchWins(t *testing.T) {
	lyrics := "Repeat me\nRepeat me\nRepeat me"
	aligned := Align(lyrics, []genius.Annotation{
		{Fragment: "Repeat me", LineNumber: -1},
	})
	if aligned[0].LineNumber != 1 {
		t.Errorf("Expected earliest occurrence, got line %d", aligned[0].LineNumber)
	}
}
