package exam

import (
	"regexp"
	"strings"
)

// Difficulty tags used for quota balancing.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// DefaultCategory is assigned to bank rows without a category.
const DefaultCategory = "other"

// Option is a single answer choice, lettered by position (a, b, c, ...).
type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Question is a bank question. Key is the normalized prompt and is used for dedup.
type Question struct {
	Prompt        string   `json:"prompt"`
	Key           string   `json:"key"`
	Options       []Option `json:"options"`
	CorrectLetter string   `json:"correct_letter"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty"`
}

// OptionLetter returns the letter for a zero-based option index.
func OptionLetter(i int) string {
	return string(rune('a' + i))
}

// OptionText returns the labelled text of option i, or "" when out of range.
func (q Question) OptionText(i int) string {
	if i < 0 || i >= len(q.Options) {
		return ""
	}
	o := q.Options[i]
	return o.Letter + ") " + o.Text
}

// CorrectIndex returns the option index of the correct letter, or -1.
func (q Question) CorrectIndex() int {
	for i, o := range q.Options {
		if o.Letter == q.CorrectLetter {
			return i
		}
	}
	return -1
}

var (
	glyphRe      = regexp.MustCompile(`[■□�•·]+`)
	spaceRe      = regexp.MustCompile(`\s+`)
	edgeNonWord  = regexp.MustCompile(`^[^\p{L}\p{N}_]+|[^\p{L}\p{N}_]+$`)
	difficulties = map[string]string{
		"easy": DifficultyEasy, "e": DifficultyEasy,
		"medium": DifficultyMedium, "med": DifficultyMedium, "m": DifficultyMedium,
		"difficult": DifficultyDifficult, "hard": DifficultyDifficult, "diff": DifficultyDifficult,
		"d": DifficultyDifficult, "h": DifficultyDifficult,
	}
)

// NormalizeText produces the dedup key for a prompt: bullet glyphs removed,
// whitespace collapsed, lowercased, and leading/trailing non-word runes stripped.
func NormalizeText(s string) string {
	s = glyphRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.ToLower(strings.TrimSpace(s))
	return edgeNonWord.ReplaceAllString(s, "")
}

// NormalizeDifficulty maps aliases onto easy/medium/difficult. Unknown or empty
// values are medium.
func NormalizeDifficulty(s string) string {
	if d, ok := difficulties[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d
	}
	return DifficultyMedium
}

// NormalizeCategory lowercases a category tag, defaulting to "other".
func NormalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultCategory
	}
	return s
}
