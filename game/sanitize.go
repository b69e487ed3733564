package game

import (
	"math"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/blusaccount/maexchen-online/domain"
)

const (
	maxNameLength         = 20
	maxCharacterPixels    = 256
	maxCharacterURLLength = 70000
	maxChatLength         = 100
	maxEmoteLength        = 50
)

var (
	unsafeChars  = regexp.MustCompile("[<>&\"'`]")
	hexColor     = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	youTubeID    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	roomCodeJunk = regexp.MustCompile(`[^A-Z0-9]`)
)

// sanitizeName strips markup characters and clamps to 20 runes. An empty
// result means the name is unusable.
func sanitizeName(raw string) string {
	return truncateRunes(strings.TrimSpace(unsafeChars.ReplaceAllString(raw, "")), maxNameLength)
}

func sanitizeText(raw string, limit int) string {
	return strings.TrimSpace(truncateRunes(unsafeChars.ReplaceAllString(raw, ""), limit))
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

func validateRoomCode(raw string) (string, bool) {
	code := roomCodeJunk.ReplaceAllString(strings.ToUpper(raw), "")
	if len(code) != codeLength {
		return "", false
	}
	return code, true
}

// validateCharacter returns nil for anything that is not a well formed portrait.
func validateCharacter(c *domain.Character) *domain.Character {
	if c == nil {
		return nil
	}
	if len(c.Pixels) == 0 && c.DataURL == "" {
		return nil
	}
	if len(c.Pixels) > maxCharacterPixels {
		return nil
	}
	for _, px := range c.Pixels {
		if px != "" && !hexColor.MatchString(px) {
			return nil
		}
	}
	if c.DataURL != "" && (!strings.HasPrefix(c.DataURL, "data:image/") || len(c.DataURL) > maxCharacterURLLength) {
		return nil
	}
	out := domain.Character{Pixels: append([]string(nil), c.Pixels...), DataURL: c.DataURL}
	return &out
}

func sanitizeColor(raw string) string {
	if hexColor.MatchString(raw) {
		return strings.ToLower(raw)
	}
	return "#000000"
}

func sanitizeSize(raw float64) float64 {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 4
	}
	return clamp(raw, 1, 40)
}

// Point is a canvas coordinate normalized to the unit square.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func normalizePoint(p *Point) (Point, bool) {
	if p == nil || !finite(p.X) || !finite(p.Y) {
		return Point{}, false
	}
	return Point{X: clamp(p.X, 0, 1), Y: clamp(p.Y, 0, 1)}, true
}

// validateYouTubeID accepts a bare video id or a youtube.com / youtu.be link.
func validateYouTubeID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if youTubeID.MatchString(raw) {
		return raw, true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	var id string
	switch strings.TrimPrefix(u.Hostname(), "www.") {
	case "youtu.be":
		id = strings.TrimPrefix(u.Path, "/")
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		id = u.Query().Get("v")
	}
	if youTubeID.MatchString(id) {
		return id, true
	}
	return "", false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
