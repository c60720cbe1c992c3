package ocr

const (
	// AutoLanguage asks the pipeline to detect the source language.
	AutoLanguage = "auto"
	// DefaultLanguage is the user-facing code used when no better choice
	// exists, e.g. for the first pass of auto-detection.
	DefaultLanguage = "en"
)

// nativeCodes maps user-facing language codes to the recognition engine's
// internal codes (Tesseract traineddata names).
var nativeCodes = map[string]string{
	"en":      "eng",
	"zh":      "chi_sim",
	"zh-Hans": "chi_sim",
	"zh-Hant": "chi_tra",
	"ja":      "jpn",
	"ko":      "kor",
	"fr":      "fra",
	"de":      "deu",
	"es":      "spa",
	"it":      "ita",
	"pt":      "por",
	"ru":      "rus",
	"ar":      "ara",
	"vi":      "vie",
	"th":      "tha",
}

// NativeCode maps a user-facing language code to the engine's native code.
// Unmapped codes fall back to English.
func NativeCode(lang string) string {
	if native, ok := nativeCodes[lang]; ok {
		return native
	}
	return "eng"
}
