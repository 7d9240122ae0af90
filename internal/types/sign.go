package types

import (
	"fmt"
	"math"
	"strings"
)

// Sign is the slug of one of the twelve zodiac signs.
type Sign string

const (
	Aries       Sign = "aries"
	Taurus      Sign = "taurus"
	Gemini      Sign = "gemini"
	Cancer      Sign = "cancer"
	Leo         Sign = "leo"
	Virgo       Sign = "virgo"
	Libra       Sign = "libra"
	Scorpio     Sign = "scorpio"
	Sagittarius Sign = "sagittarius"
	Capricorn   Sign = "capricorn"
	Aquarius    Sign = "aquarius"
	Pisces      Sign = "pisces"
)

// Signs lists every sign in zodiac order, starting at 0° Aries.
var Signs = []Sign{
	Aries, Taurus, Gemini, Cancer, Leo, Virgo,
	Libra, Scorpio, Sagittarius, Capricorn, Aquarius, Pisces,
}

var signJA = map[Sign]string{
	Aries:       "牡羊座",
	Taurus:      "牡牛座",
	Gemini:      "双子座",
	Cancer:      "蟹座",
	Leo:         "獅子座",
	Virgo:       "乙女座",
	Libra:       "天秤座",
	Scorpio:     "蠍座",
	Sagittarius: "射手座",
	Capricorn:   "山羊座",
	Aquarius:    "水瓶座",
	Pisces:      "魚座",
}

// JA returns the Japanese display name, or the slug for an unknown sign.
func (s Sign) JA() string {
	if name, ok := signJA[s]; ok {
		return name
	}
	return string(s)
}

// Valid reports whether s is one of the twelve slugs.
func (s Sign) Valid() bool {
	_, ok := signJA[s]
	return ok
}

// ParseSign normalizes and validates a slug.
func ParseSign(s string) (Sign, error) {
	sign := Sign(strings.ToLower(strings.TrimSpace(s)))
	if !sign.Valid() {
		return "", fmt.Errorf("unknown sign %q", s)
	}
	return sign, nil
}

// SignFromLongitude returns the sign whose 30° band contains the ecliptic
// longitude (degrees). Any real value is accepted and normalized first.
func SignFromLongitude(deg float64) Sign {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int(deg / 30)
	if idx >= len(Signs) {
		idx = len(Signs) - 1
	}
	return Signs[idx]
}

// Scope is the target of one forecast: the global forecast or a single sign.
type Scope string

// Global is the scope of the day's overall forecast.
const Global Scope = "global"

// ScopeOf returns the scope for a sign.
func ScopeOf(sign Sign) Scope {
	return Scope(sign)
}

// Scopes returns the global scope followed by every sign scope.
func Scopes() []Scope {
	scopes := make([]Scope, 0, len(Signs)+1)
	scopes = append(scopes, Global)
	for _, sign := range Signs {
		scopes = append(scopes, ScopeOf(sign))
	}
	return scopes
}

// IsGlobal reports whether the scope is the global forecast.
func (s Scope) IsGlobal() bool {
	return s == Global
}

// Sign returns the sign of a sign scope and false for the global scope.
func (s Scope) Sign() (Sign, bool) {
	if s.IsGlobal() {
		return "", false
	}
	sign := Sign(s)
	return sign, sign.Valid()
}

// Target is the key the fallback selector hashes together with the date:
// "global" or "sign:<slug>".
func (s Scope) Target() string {
	if s.IsGlobal() {
		return "global"
	}
	return "sign:" + string(s)
}

// Label is a human readable name for logs and terminal output.
func (s Scope) Label() string {
	if s.IsGlobal() {
		return "全体運"
	}
	return Sign(s).JA()
}
