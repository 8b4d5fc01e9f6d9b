package utils

import (
	"regexp"
	"strings"
)

// Language codes returned by DetectLanguage.
const (
	LangEnglish  = "en"
	LangHebrew   = "he"
	LangArabic   = "ar"
	LangRussian  = "ru"
	LangChinese  = "zh"
	LangJapanese = "ja"
	LangKorean   = "ko"
)

// Language is a detected language with the script ratio that backed
// the detection.
type Language struct {
	Code       string
	Name       string
	Confidence float64
}

type script struct {
	code    string
	name    string
	pattern *regexp.Regexp
}

// Patterns are compiled once; detection runs on every chat request.
var scripts = []script{
	{LangHebrew, "Hebrew", regexp.MustCompile(`[\x{0590}-\x{05FF}]`)},
	{LangArabic, "Arabic", regexp.MustCompile(`[\x{0600}-\x{06FF}]`)},
	{LangRussian, "Russian", regexp.MustCompile(`[\x{0400}-\x{04FF}]`)},
	{LangChinese, "Chinese", regexp.MustCompile(`[\x{4E00}-\x{9FFF}]`)},
	{LangJapanese, "Japanese", regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FFF}]`)},
	{LangKorean, "Korean", regexp.MustCompile(`[\x{AC00}-\x{D7AF}]`)},
}

var kanaPattern = regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}]`)

// DetectLanguage guesses the language of a question from its script.
// A script needs to cover 10% of the runes to win outright, or 1% when
// nothing clears that bar (an English sentence quoting a Hebrew
// subject line still gets a Hebrew answer). Latin-script text reads as
// English.
func DetectLanguage(text string) Language {
	text = strings.TrimSpace(text)
	if text == "" {
		return Language{Code: LangEnglish, Name: "English", Confidence: 0.0}
	}

	total := float64(len([]rune(text)))
	best := Language{Code: LangEnglish, Name: "English"}
	for _, threshold := range []float64{0.1, 0.01} {
		for _, s := range scripts {
			ratio := float64(len(s.pattern.FindAllString(text, -1))) / total
			if ratio > threshold && ratio > best.Confidence {
				best = Language{Code: s.code, Name: s.name, Confidence: ratio}
			}
		}
		if best.Code != LangEnglish {
			break
		}
	}

	// The kanji range is shared between Chinese and Japanese; kana
	// presence settles which one the text actually is.
	if best.Code == LangChinese || best.Code == LangJapanese {
		kanaRatio := float64(len(kanaPattern.FindAllString(text, -1))) / total
		if kanaRatio > 0.05 {
			best.Code, best.Name = LangJapanese, "Japanese"
		} else {
			best.Code, best.Name = LangChinese, "Chinese"
		}
	}

	return best
}

// GetLanguageInstruction renders the reply-language line appended to
// prompts so answers come back in the language of the question.
func GetLanguageInstruction(lang Language) string {
	switch lang.Code {
	case LangHebrew:
		return "Please respond in Hebrew (עברית)."
	case LangArabic:
		return "Please respond in Arabic (العربية)."
	case LangRussian:
		return "Please respond in Russian (Русский)."
	case LangChinese:
		return "Please respond in Chinese (中文)."
	case LangJapanese:
		return "Please respond in Japanese (日本語)."
	case LangKorean:
		return "Please respond in Korean (한국어)."
	default:
		return "Please respond in English."
	}
}
