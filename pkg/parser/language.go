package parser

import (
	"path/filepath"
	"strings"
)

// Language represents a supported source language.
type Language int

const (
	// LanguageTypeScript represents TypeScript (.ts, .mts, .cts, .tsx files)
	LanguageTypeScript Language = iota
	// LanguageJavaScript represents JavaScript (.js, .jsx, .mjs, .cjs files)
	LanguageJavaScript
	// LanguageUnknown represents an unsupported language
	LanguageUnknown
)

// String returns the string representation of the language.
func (l Language) String() string {
	switch l {
	case LanguageTypeScript:
		return "typescript"
	case LanguageJavaScript:
		return "javascript"
	default:
		return "unknown"
	}
}

// DetectLanguage detects the language from a file path.
// Returns LanguageUnknown if the file extension is not recognized.
func DetectLanguage(filePath string) Language {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".ts", ".mts", ".cts", ".tsx":
		return LanguageTypeScript
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	default:
		return LanguageUnknown
	}
}

// IsTSXFile checks if a file path represents a TSX file.
// TSX files use the TypeScript grammar with JSX support enabled.
func IsTSXFile(filePath string) bool {
	return strings.ToLower(filepath.Ext(filePath)) == ".tsx"
}

// IsSupportedFile reports whether filePath has an extension the pass handles.
func IsSupportedFile(filePath string) bool {
	return DetectLanguage(filePath) != LanguageUnknown
}

// ParseLanguageString converts a language name to a Language and TSX flag.
// "tsx" selects TypeScript with JSX; "jsx" is plain JavaScript since that
// grammar always accepts JSX. Returns LanguageUnknown if not recognized.
func ParseLanguageString(lang string) (Language, bool) {
	switch strings.ToLower(lang) {
	case "typescript", "ts":
		return LanguageTypeScript, false
	case "tsx":
		return LanguageTypeScript, true
	case "javascript", "js", "jsx":
		return LanguageJavaScript, false
	default:
		return LanguageUnknown, false
	}
}

// SupportedExtensions returns the file extensions the pass handles.
func SupportedExtensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}
}
