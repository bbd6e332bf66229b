package document

import "strings"

const (
	LanguageFR = "fr"
	LanguageEN = "en"
	LanguageNL = "nl"

	CurrencyEUR = "EUR"
)

var ErrUnsupportedCurrency = NewValidationError("currency", "invalid_currency", "Only EUR is supported")

// NormalizeLanguage maps a requested document language to fr, en or nl.
// Unknown values fall back to fr.
func NormalizeLanguage(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case LanguageEN:
		return LanguageEN
	case LanguageNL:
		return LanguageNL
	default:
		return LanguageFR
	}
}

// NormalizeCurrency accepts an empty value or EUR in any case.
func NormalizeCurrency(currency string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" || c == CurrencyEUR {
		return CurrencyEUR, nil
	}
	return "", ErrUnsupportedCurrency
}

// NormalizeTemplate maps a PDF template name to classic, modern or minimal.
func NormalizeTemplate(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "modern":
		return "modern"
	case "minimal":
		return "minimal"
	default:
		return "classic"
	}
}
