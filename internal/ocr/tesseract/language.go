package tesseract

import "golang.org/x/text/language"

var traineddata = map[string]string{
	"af": "afr", "ar": "ara", "bg": "bul", "bn": "ben", "ca": "cat",
	"cs": "ces", "da": "dan", "de": "deu", "el": "ell", "en": "eng",
	"es": "spa", "et": "est", "fa": "fas", "fi": "fin", "fr": "fra",
	"he": "heb", "hi": "hin", "hr": "hrv", "hu": "hun", "id": "ind",
	"it": "ita", "ja": "jpn", "ko": "kor", "lt": "lit", "lv": "lav",
	"nb": "nor", "nl": "nld", "pl": "pol", "pt": "por", "ro": "ron",
	"ru": "rus", "sk": "slk", "sl": "slv", "sr": "srp", "sv": "swe",
	"th": "tha", "tr": "tur", "uk": "ukr", "ur": "urd", "vi": "vie",
}

// LanguageCode maps a BCP-47 tag to the tesseract traineddata name.
// Unknown languages map to their ISO 639 base code.
func LanguageCode(tag language.Tag) string {
	base, _ := tag.Base()
	if base.String() == "zh" {
		if script, _ := tag.Script(); script.String() == "Hant" {
			return "chi_tra"
		}
		return "chi_sim"
	}
	if code, ok := traineddata[base.String()]; ok {
		return code
	}
	if iso3 := base.ISO3(); iso3 != "" {
		return iso3
	}
	return base.String()
}
