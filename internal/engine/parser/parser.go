package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"ngasync/internal/core/errors"
	"ngasync/internal/shared/observability"
	"ngasync/internal/shared/util"
)

// Parser maps file paths to grammars and produces Units. It is the host
// compiler front end the transform consumes.
type Parser struct {
	loader     *GrammarLoader
	pools      map[string]*ParserPool
	extensions map[string]string
	declFiles  []string
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		pools:      make(map[string]*ParserPool),
		extensions: make(map[string]string),
	}
	for lang, spec := range loader.LanguageRegistry() {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			p.extensions[strings.ToLower(ext)] = lang
		}
		p.declFiles = append(p.declFiles, spec.DeclarationFiles...)
		if grammar := loader.Language(lang); grammar != nil {
			p.pools[lang] = NewParserPool(grammar)
		}
	}
	return p
}

// Parse parses content as the language selected by path's extension.
// The returned Unit owns the tree; callers must Close it.
func (p *Parser) Parse(path string, content []byte) (*Unit, error) {
	lang := p.detectLanguage(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}
	return p.ParseLanguage(lang, path, content)
}

// ParseLanguage parses content with an explicit grammar id.
func (p *Parser) ParseLanguage(lang, path string, content []byte) (*Unit, error) {
	pool := p.pools[lang]
	if pool == nil {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("grammar not loaded: %s", lang))
	}

	start := time.Now()
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())

	return &Unit{
		Path:     path,
		Language: lang,
		Source:   content,
		Tree:     tree,
	}, nil
}

func (p *Parser) detectLanguage(path string) string {
	base := strings.ToLower(filepath.Base(path))
	for _, suffix := range p.declFiles {
		if strings.HasSuffix(base, suffix) {
			return ""
		}
	}
	ext := strings.ToLower(filepath.Ext(base))
	return p.extensions[ext]
}

func (p *Parser) IsSupportedPath(path string) bool {
	return p.detectLanguage(path) != ""
}

func (p *Parser) GetLanguage(path string) string {
	return p.detectLanguage(path)
}

func (p *Parser) SupportedExtensions() []string {
	return util.SortedStringKeys(p.extensions)
}
