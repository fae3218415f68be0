package match

// Language describes one selectable call language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// Languages is the fixed set of selectable call languages, including the
// wildcard entry. The order is the order presented to clients.
var Languages = []Language{
	{Code: "Te", Name: "Telugu", Flag: "🇮🇳"},
	{Code: "Ta", Name: "Tamil", Flag: "🇮🇳"},
	{Code: "En", Name: "English", Flag: "🇺🇸"},
	{Code: "Hi", Name: "Hindi", Flag: "🇮🇳"},
	{Code: "Ka", Name: "Kannada", Flag: "🇮🇳"},
	{Code: LanguageAny, Name: "Any Language", Flag: "🌍"},
}

// ValidLanguage reports whether code is one of the selectable languages.
func ValidLanguage(code string) bool {
	for _, l := range Languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// LanguageName returns the display name for code, or code itself when the
// code is unknown.
func LanguageName(code string) string {
	for _, l := range Languages {
		if l.Code == code {
			return l.Name
		}
	}
	return code
}
