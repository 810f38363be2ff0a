package ocr_test

import (
	"testing"

	"github.com/adverant/nexus/layoutocr-worker/internal/ocr"
)

func TestLanguageUtilities(t *testing.T) {
	tests := []struct {
		tag          string
		spaceJoining bool
		rightToLeft  bool
	}{
		{"en-US", true, false},
		{"fr", true, false},
		{"zh-Hans", false, false},
		{"zh-TW", false, false},
		{"ja", false, false},
		{"ar", true, true},
		{"he-IL", true, true},
		{"fa", true, true},
		{"ko", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			tag, err := ocr.ParseLanguage(tt.tag)
			if err != nil {
				t.Fatalf("ParseLanguage(%q) failed: %v", tt.tag, err)
			}
			if got := ocr.IsSpaceJoining(tag); got != tt.spaceJoining {
				t.Errorf("IsSpaceJoining = %v, want %v", got, tt.spaceJoining)
			}
			if got := ocr.IsRightToLeft(tag); got != tt.rightToLeft {
				t.Errorf("IsRightToLeft = %v, want %v", got, tt.rightToLeft)
			}
		})
	}
}

func TestParseLanguage_DefaultsAndErrors(t *testing.T) {
	tag, err := ocr.ParseLanguage("")
	if err != nil || tag.String() != "en" {
		t.Errorf("empty tag should default to en, got %v (%v)", tag, err)
	}
	if _, err := ocr.ParseLanguage("not a tag!"); err == nil {
		t.Error("expected error for malformed tag")
	}
}
