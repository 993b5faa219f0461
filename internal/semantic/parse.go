package semantic

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// File is a parsed source file with its scope model.
type File struct {
	Path     string
	Language string
	Source   []byte
	Tree     *sitter.Tree
	Grammar  *sitter.Language
	Model    *Model
}

// Root returns the file's root node.
func (f *File) Root() *sitter.Node {
	return f.Tree.RootNode()
}

// Text returns the source text of n.
func (f *File) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.Source)
}

// Close releases the tree-sitter tree.
func (f *File) Close() {
	if f.Tree != nil {
		f.Tree.Close()
	}
}

// Parse parses src as the language implied by path and builds its scope
// model. A new parser is created per call, so Parse is safe for concurrent
// use.
func Parse(ctx context.Context, path string, src []byte) (*File, error) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("semantic: unsupported file %s", path)
	}
	return ParseLanguage(ctx, path, lang, src)
}

// ParseLanguage parses src with an explicit language name.
func ParseLanguage(ctx context.Context, path, lang string, src []byte) (*File, error) {
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("semantic: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("semantic: parse %s: %w", path, err)
	}

	return &File{
		Path:     path,
		Language: lang,
		Source:   src,
		Tree:     tree,
		Grammar:  grammar,
		Model:    Build(tree.RootNode(), src),
	}, nil
}
