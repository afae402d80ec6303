package bank

import (
	"strings"

	"github.com/lotuseval/placement-backend/internal/exam"
)

// Sheet columns. Row 0 is a header.
const (
	colPrompt     = 0
	colFirstOpt   = 1
	colLastOpt    = 4
	colCategory   = 5
	colCorrect    = 6
	colDifficulty = 7
)

// ParseRows turns sheet rows into questions. Rows without a prompt and
// prompts that normalize to an already seen key are dropped.
func ParseRows(rows [][]string) []exam.Question {
	seen := make(map[string]bool, len(rows))
	out := make([]exam.Question, 0, len(rows))

	for i, row := range rows {
		if i == 0 {
			continue
		}
		cell := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}

		prompt := cell(colPrompt)
		if prompt == "" {
			continue
		}
		key := exam.NormalizeText(prompt)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		var options []exam.Option
		for col := colFirstOpt; col <= colLastOpt; col++ {
			if text := cell(col); text != "" {
				options = append(options, exam.Option{Letter: exam.OptionLetter(len(options)), Text: text})
			}
		}

		correct := strings.ToLower(cell(colCorrect))
		correct = strings.TrimSpace(strings.TrimSuffix(correct, ")"))

		out = append(out, exam.Question{
			Prompt:        prompt,
			Key:           key,
			Options:       options,
			CorrectLetter: correct,
			Category:      exam.NormalizeCategory(cell(colCategory)),
			Difficulty:    exam.NormalizeDifficulty(cell(colDifficulty)),
		})
	}
	return out
}
