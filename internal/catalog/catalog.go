// Package catalog holds the static game content: origin identities and the
// localized strings shown to the player. Everything here is read-only.
package catalog

import (
	_ "embed"
	"fmt"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed identities.yaml
var identitiesYAML []byte

//go:embed text.yaml
var textYAML []byte

// Lang is a supported display language.
type Lang string

const (
	English Lang = "en"
	Chinese Lang = "zh"
)

// Langs lists the supported languages in menu order.
var Langs = []Lang{Chinese, English}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Chinese})

// ParseLang maps any BCP 47 tag ("zh-Hans-CN", "en-GB", "ZH") to a supported
// language. Unrecognized tags fall back to English.
func ParseLang(tag string) Lang {
	_, idx := language.MatchStrings(matcher, tag)
	if idx == 1 {
		return Chinese
	}
	return English
}

// Identity is an origin archetype offered at setup.
type Identity struct {
	ID          string          `yaml:"id"`
	Name        map[Lang]string `yaml:"name"`
	Description map[Lang]string `yaml:"description"`
}

// DisplayName returns the identity name in lang.
func (i Identity) DisplayName(lang Lang) string {
	if s, ok := i.Name[lang]; ok {
		return s
	}
	return i.Name[English]
}

// Describe returns the identity description in lang.
func (i Identity) Describe(lang Lang) string {
	if s, ok := i.Description[lang]; ok {
		return s
	}
	return i.Description[English]
}

// Strings is the localized string table for one language.
type Strings struct {
	Title             string `yaml:"title"`
	Subtitle          string `yaml:"subtitle"`
	ChooseLanguage    string `yaml:"choose_language"`
	EnterName         string `yaml:"enter_name"`
	NamePlaceholder   string `yaml:"name_placeholder"`
	SelectIdentity    string `yaml:"select_identity"`
	Start             string `yaml:"start"`
	HP                string `yaml:"hp"`
	Qi                string `yaml:"qi"`
	Karma             string `yaml:"karma"`
	Realm             string `yaml:"realm"`
	SpiritRoot        string `yaml:"spirit_root"`
	Location          string `yaml:"location"`
	Wealth            string `yaml:"wealth"`
	Bag               string `yaml:"bag"`
	Empty             string `yaml:"empty"`
	Phase             string `yaml:"phase"`
	GameOver          string `yaml:"game_over"`
	GameOverDesc      string `yaml:"game_over_desc"`
	Reincarnate       string `yaml:"reincarnate"`
	Thinking          string `yaml:"thinking"`
	Choose            string `yaml:"choose"`
	You               string `yaml:"you"`
	Narrator          string `yaml:"narrator"`
	InitialRealm      string `yaml:"initial_realm"`
	UnknownLocation   string `yaml:"unknown_location"`
	ContinueAction    string `yaml:"continue_action"`
	FallbackNarrative string `yaml:"fallback_narrative"`
	FallbackChoice    string `yaml:"fallback_choice"`
	Help              string `yaml:"help"`
}

var (
	identities []Identity
	texts      map[Lang]Strings
)

func init() {
	if err := yaml.Unmarshal(identitiesYAML, &identities); err != nil {
		panic(fmt.Sprintf("catalog: parse identities.yaml: %v", err))
	}
	if err := yaml.Unmarshal(textYAML, &texts); err != nil {
		panic(fmt.Sprintf("catalog: parse text.yaml: %v", err))
	}
}

// Identities returns the origin archetypes in display order.
func Identities() []Identity {
	out := make([]Identity, len(identities))
	copy(out, identities)
	return out
}

// IdentityByID looks up an identity by its stable id.
func IdentityByID(id string) (Identity, bool) {
	for _, ident := range identities {
		if ident.ID == id {
			return ident, true
		}
	}
	return Identity{}, false
}

// Text returns the string table for lang, falling back to English.
func Text(lang Lang) Strings {
	if s, ok := texts[lang]; ok {
		return s
	}
	return texts[English]
}
