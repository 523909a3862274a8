package pagetl

import "strings"

// DefaultTargetLang is the target language when none is configured.
const DefaultTargetLang = "zh_CN"

// LanguageNames maps locale codes to the names used in prompts.
var LanguageNames = map[string]string{
	"en_US": "English (United States)",
	"en_GB": "English (United Kingdom)",
	"de_DE": "German (Germany)",
	"es_ES": "Spanish (Spain)",
	"es_MX": "Spanish (Mexico)",
	"fr_FR": "French (France)",
	"it_IT": "Italian (Italy)",
	"ja_JP": "Japanese (Japan)",
	"ko_KR": "Korean (South Korea)",
	"pt_BR": "Portuguese (Brazil)",
	"pt_PT": "Portuguese (Portugal)",
	"ru_RU": "Russian (Russia)",
	"zh_CN": "Simplified Chinese",
	"zh_TW": "Traditional Chinese",
	"ar_SA": "Arabic (Saudi Arabia)",
	"he_IL": "Hebrew (Israel)",
	"fa_IR": "Persian (Iran)",
	"ur_PK": "Urdu (Pakistan)",
	"hi_IN": "Hindi (India)",
	"id_ID": "Indonesian (Indonesia)",
	"nl_NL": "Dutch (Netherlands)",
	"nb_NO": "Norwegian Bokmål (Norway)",
	"pl_PL": "Polish (Poland)",
	"sv_SE": "Swedish (Sweden)",
	"th_TH": "Thai (Thailand)",
	"tr_TR": "Turkish (Turkey)",
	"uk_UA": "Ukrainian (Ukraine)",
	"vi_VN": "Vietnamese (Vietnam)",
}

// ShortCodeToLocale maps short language codes to full locale codes.
var ShortCodeToLocale = map[string]string{
	"en": "en_US",
	"de": "de_DE",
	"es": "es_ES",
	"fr": "fr_FR",
	"it": "it_IT",
	"ja": "ja_JP",
	"ko": "ko_KR",
	"pt": "pt_BR",
	"ru": "ru_RU",
	"zh": "zh_CN",
	"ar": "ar_SA",
	"he": "he_IL",
	"fa": "fa_IR",
	"hi": "hi_IN",
	"nl": "nl_NL",
	"pl": "pl_PL",
	"tr": "tr_TR",
	"vi": "vi_VN",
}

// RTLLanguages contains base language codes written right to left.
var RTLLanguages = map[string]bool{
	"ar": true,
	"he": true,
	"fa": true,
	"ur": true,
	"ps": true,
	"sd": true,
	"ug": true,
}

// ResolveLocale turns "zh", "zh-CN" or "zh_CN" into "zh_CN". Unknown codes
// are returned with hyphens replaced.
func ResolveLocale(langCode string) string {
	code := NormalizeLocale(strings.TrimSpace(langCode))
	if locale, ok := ShortCodeToLocale[strings.ToLower(code)]; ok {
		return locale
	}
	if base, region, ok := strings.Cut(code, "_"); ok {
		return strings.ToLower(base) + "_" + strings.ToUpper(region)
	}
	return code
}

// GetLanguageName returns the prompt name for a language code, or the code
// itself when unknown.
func GetLanguageName(langCode string) string {
	if name, ok := LanguageNames[ResolveLocale(langCode)]; ok {
		return name
	}
	return langCode
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(langCode string) string {
	base, _, _ := strings.Cut(NormalizeLocale(langCode), "_")
	if RTLLanguages[strings.ToLower(base)] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(langCode string) bool {
	return GetDirection(langCode) == "rtl"
}

// NormalizeLocale converts a language code to the standard format (e.g., "es-ES" → "es_ES").
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(langCode, "-", "_")
}

// ToHTMLLang converts a locale code to HTML lang attribute format (e.g., "es_ES" → "es-ES").
func ToHTMLLang(langCode string) string {
	return strings.ReplaceAll(langCode, "_", "-")
}

// LocaleClarifications disambiguates locales that share a language.
var LocaleClarifications = map[string]string{
	"zh_CN": "Use Simplified Chinese characters and Mainland China conventions.",
	"zh_TW": "Use Traditional Chinese characters and Taiwan conventions.",
	"es_ES": "Use Castilian Spanish (Spain), including vosotros forms.",
	"es_MX": "Use Mexican Spanish; use ustedes, never vosotros.",
	"pt_BR": "Use Brazilian Portuguese spelling and vocabulary.",
	"pt_PT": "Use European Portuguese spelling and vocabulary.",
	"en_GB": "Use British spelling (colour, organise).",
	"en_US": "Use American spelling (color, organize).",
	"nb_NO": "Write in Norwegian Bokmål, not Nynorsk.",
}

// GetLocaleClarification returns the locale hint for a language code, or
// "" when the language needs none.
func GetLocaleClarification(langCode string) string {
	return LocaleClarifications[ResolveLocale(langCode)]
}
