// Package i18n provides the localized message catalog used for AI prompts,
// spreadsheet headers and desktop notifications. Italian is the default
// language and the fallback for keys missing from other locales.
package i18n

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var messagesYAML []byte

// DefaultLanguage matches the product's primary audience.
const DefaultLanguage = "it"

type locale struct {
	strings map[string]string
	lists   map[string][]string
}

// Catalog resolves message keys for a configured language.
type Catalog struct {
	lang    string
	locales map[string]locale
}

// New parses the embedded catalog and selects lang. Unknown languages fall
// back to Italian wholesale.
func New(lang string) (*Catalog, error) {
	var raw map[string]map[string]yaml.Node
	if err := yaml.Unmarshal(messagesYAML, &raw); err != nil {
		return nil, eris.Wrap(err, "parse message catalog")
	}

	locales := make(map[string]locale, len(raw))
	for code, entries := range raw {
		loc := locale{
			strings: make(map[string]string),
			lists:   make(map[string][]string),
		}
		for key, node := range entries {
			switch node.Kind {
			case yaml.SequenceNode:
				var list []string
				if err := node.Decode(&list); err != nil {
					return nil, eris.Wrapf(err, "decode %s.%s", code, key)
				}
				loc.lists[key] = list
			default:
				var s string
				if err := node.Decode(&s); err != nil {
					return nil, eris.Wrapf(err, "decode %s.%s", code, key)
				}
				loc.strings[key] = s
			}
		}
		locales[code] = loc
	}

	if _, ok := locales[DefaultLanguage]; !ok {
		return nil, eris.New("message catalog is missing the default language")
	}
	if _, ok := locales[lang]; !ok {
		lang = DefaultLanguage
	}
	return &Catalog{lang: lang, locales: locales}, nil
}

// Language reports the resolved language code.
func (c *Catalog) Language() string { return c.lang }

// Message returns the string for key with {placeholder} substitutions
// applied. Keys absent from the active locale resolve through the default
// locale; a key absent everywhere returns the empty string.
func (c *Catalog) Message(key string, subs map[string]string) string {
	msg, ok := c.locales[c.lang].strings[key]
	if !ok {
		msg = c.locales[DefaultLanguage].strings[key]
	}
	for name, val := range subs {
		msg = strings.ReplaceAll(msg, "{"+name+"}", val)
	}
	return msg
}

// List returns the string list for key, falling back to the default locale.
func (c *Catalog) List(key string) []string {
	if list, ok := c.locales[c.lang].lists[key]; ok {
		return list
	}
	return c.locales[DefaultLanguage].lists[key]
}
