package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

const DefaultLang = "es"

// Translator holds the strings of one language.
type Translator struct {
	lang         string
	translations map[string]string
}

func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	data, err := fs.ReadFile(fsys, path.Join("locales", langCode+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("read translations %s: %w", langCode, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("translations %s: %w", langCode, err)
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return &Translator{translations: translations}, nil
}

func (t *Translator) Lang() string { return t.lang }

// T returns the string for key, or the key itself when missing.
func (t *Translator) T(key string, args ...any) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Bundle picks a Translator from an Accept-Language header.
type Bundle struct {
	fallback *Translator
	byLang   map[string]*Translator
}

func NewBundle(fsys fs.FS, fallback string, langs ...string) (*Bundle, error) {
	b := &Bundle{byLang: make(map[string]*Translator, len(langs)+1)}
	for _, l := range append([]string{fallback}, langs...) {
		if _, ok := b.byLang[l]; ok {
			continue
		}
		t, err := NewTranslator(fsys, l)
		if err != nil {
			return nil, err
		}
		b.byLang[l] = t
	}
	b.fallback = b.byLang[fallback]
	return b, nil
}

// For returns the first language in header order that the bundle knows.
// Regional variants fall back to their base language ("es-AR" -> "es").
func (b *Bundle) For(acceptLanguage string) *Translator {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		base, _, _ := strings.Cut(strings.ToLower(tag), "-")
		if t, ok := b.byLang[base]; ok {
			return t
		}
	}
	return b.fallback
}

var (
	defaultOnce   sync.Once
	defaultBundle *Bundle
)

// Default is the bundle built from the embedded locales.
func Default() *Bundle {
	defaultOnce.Do(func() {
		b, err := NewBundle(LocalesFS, DefaultLang, "en")
		if err != nil {
			panic(err)
		}
		defaultBundle = b
	})
	return defaultBundle
}
