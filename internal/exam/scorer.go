package exam

import "math"

// Outcome classifies a single answered slot.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeTimedOut  Outcome = "timed_out"
)

// Detail is the per-question row of a result.
type Detail struct {
	Position      int     `json:"position"`
	Question      string  `json:"question"`
	ChosenAnswer  string  `json:"chosen_answer"`
	CorrectAnswer string  `json:"correct_answer"`
	Outcome       Outcome `json:"outcome"`
	Category      string  `json:"category"`
	Difficulty    string  `json:"difficulty"`
}

// Result is the scored outcome of a session.
type Result struct {
	Score     float64  `json:"score"`
	Correct   int      `json:"correct"`
	Incorrect int      `json:"incorrect"`
	TimedOut  int      `json:"timed_out"`
	Total     int      `json:"total"`
	Details   []Detail `json:"details"`
}

// Score grades answers against questions. Unanswered slots count as
// incorrect; timed-out slots are tallied separately. The score is the
// percentage correct rounded to two decimals.
func Score(questions []Question, answers []int) (Result, error) {
	if len(questions) != len(answers) {
		return Result{}, ErrInputLengthMismatch
	}

	res := Result{
		Total:   len(questions),
		Details: make([]Detail, 0, len(questions)),
	}
	for i, q := range questions {
		d := Detail{
			Position:      i + 1,
			Question:      q.Prompt,
			CorrectAnswer: q.OptionText(q.CorrectIndex()),
			Category:      q.Category,
			Difficulty:    q.Difficulty,
		}

		switch a := answers[i]; {
		case a == SlotTimedOut:
			d.Outcome = OutcomeTimedOut
			res.TimedOut++
		case a >= 0 && a < len(q.Options) && q.Options[a].Letter == q.CorrectLetter:
			d.ChosenAnswer = q.OptionText(a)
			d.Outcome = OutcomeCorrect
			res.Correct++
		default:
			d.ChosenAnswer = q.OptionText(a)
			d.Outcome = OutcomeIncorrect
			res.Incorrect++
		}
		res.Details = append(res.Details, d)
	}

	if res.Total > 0 {
		res.Score = math.Round(float64(res.Correct)/float64(res.Total)*100*100) / 100
	}
	return res, nil
}
