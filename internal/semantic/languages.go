package semantic

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Canonical language names.
const (
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
)

// extToLanguage maps file extensions to canonical language names.
// JSX is part of the javascript grammar; .tsx needs its own grammar because
// the typescript grammar rejects JSX.
var extToLanguage = map[string]string{
	".js":  LangJavaScript,
	".jsx": LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
}

// langToGrammar maps language names to tree-sitter Language objects.
// Lazily initialized on first call via sync.Once.
var (
	langToGrammar map[string]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[string]*sitter.Language{
			LangJavaScript: javascript.GetLanguage(),
			LangTypeScript: ts.GetLanguage(),
			LangTSX:        tsx.GetLanguage(),
		}
	})
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
// Declaration files (.d.ts) are never checked.
func LanguageForFile(path string) (string, bool) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".d.ts") {
		return "", false
	}
	lang, ok := extToLanguage[filepath.Ext(lower)]
	return lang, ok
}

// GrammarForLanguage returns the tree-sitter Language for a canonical language
// name. Returns (nil, false) if the language is not supported.
func GrammarForLanguage(lang string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := langToGrammar[lang]
	return l, ok
}

// Languages returns the supported language names.
func Languages() []string {
	return []string{LangJavaScript, LangTypeScript, LangTSX}
}
