package ocr

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

var logographicScripts = map[string]bool{
	"Hani": true, "Hans": true, "Hant": true,
	"Jpan": true, "Hira": true, "Kana": true,
}

var rightToLeftBases = map[string]bool{
	"ar": true, "he": true, "fa": true, "ur": true, "ps": true,
	"yi": true, "dv": true, "ug": true, "sd": true, "ckb": true,
}

var rightToLeftScripts = map[string]bool{
	"Arab": true, "Hebr": true, "Thaa": true, "Syrc": true, "Nkoo": true,
}

// ParseLanguage parses a BCP-47 tag such as "en-US" or "zh-Hans".
// An empty string means English.
func ParseLanguage(s string) (language.Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return language.English, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language tag %q: %w", s, err)
	}
	return tag, nil
}

// IsSpaceJoining reports whether words of the language are separated by
// spaces. Chinese and Japanese are not: their glyphs are joined directly.
func IsSpaceJoining(tag language.Tag) bool {
	base, _ := tag.Base()
	switch base.String() {
	case "zh", "ja":
		return false
	}
	script, conf := tag.Script()
	if conf != language.No && logographicScripts[script.String()] {
		return false
	}
	return true
}

// IsRightToLeft reports whether the language is written right to left
func IsRightToLeft(tag language.Tag) bool {
	base, _ := tag.Base()
	if rightToLeftBases[base.String()] {
		return true
	}
	script, conf := tag.Script()
	return conf != language.No && rightToLeftScripts[script.String()]
}
