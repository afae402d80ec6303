package exam

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Quota is a named required count (a category or a difficulty).
type Quota struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// Rules is the static configuration of one exam type. Quota order is
// significant: it fixes iteration order, which keeps seeded selection
// reproducible. Category counts may exceed Total; the combined selection is
// truncated after the final shuffle.
type Rules struct {
	ExamType   string  `json:"exam_type" yaml:"exam_type"`
	Sheet      string  `json:"sheet" yaml:"sheet"`
	Total      int     `json:"total" yaml:"total"`
	Categories []Quota `json:"categories" yaml:"categories"`
	Difficulty []Quota `json:"difficulty" yaml:"difficulty"`
}

// Validate checks that the quotas are coherent.
func (r Rules) Validate() error {
	if strings.TrimSpace(r.ExamType) == "" {
		return fmt.Errorf("exam type name is required")
	}
	if r.Total <= 0 {
		return fmt.Errorf("%q: total must be positive", r.ExamType)
	}
	if len(r.Categories) == 0 {
		return fmt.Errorf("%q: at least one category is required", r.ExamType)
	}

	sum := 0
	seen := make(map[string]bool, len(r.Categories))
	for _, c := range r.Categories {
		if c.Count <= 0 {
			return fmt.Errorf("%q: category %q count must be positive", r.ExamType, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("%q: duplicate category %q", r.ExamType, c.Name)
		}
		seen[c.Name] = true
		sum += c.Count
	}
	if sum < r.Total {
		return fmt.Errorf("%q: category counts sum to %d, below total %d", r.ExamType, sum, r.Total)
	}

	seen = make(map[string]bool, len(r.Difficulty))
	for _, d := range r.Difficulty {
		if d.Count < 0 {
			return fmt.Errorf("%q: difficulty %q count is negative", r.ExamType, d.Name)
		}
		if _, ok := difficulties[d.Name]; !ok {
			return fmt.Errorf("%q: unknown difficulty %q", r.ExamType, d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("%q: duplicate difficulty %q", r.ExamType, d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

// Ruleset is an ordered registry of exam rules keyed by exam type.
type Ruleset struct {
	order  []string
	byType map[string]Rules
}

// NewRuleset validates and indexes the given rules.
func NewRuleset(rules ...Rules) (*Ruleset, error) {
	rs := &Ruleset{byType: make(map[string]Rules, len(rules))}
	for _, r := range rules {
		for i := range r.Categories {
			r.Categories[i].Name = NormalizeCategory(r.Categories[i].Name)
		}
		for i := range r.Difficulty {
			name := strings.ToLower(strings.TrimSpace(r.Difficulty[i].Name))
			if canonical, ok := difficulties[name]; ok {
				name = canonical
			}
			r.Difficulty[i].Name = name
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := rs.byType[r.ExamType]; dup {
			return nil, fmt.Errorf("duplicate exam type %q", r.ExamType)
		}
		if r.Sheet == "" {
			r.Sheet = strings.NewReplacer(" ", "_", "(", "", ")", "", "-", "").Replace(r.ExamType)
		}
		rs.order = append(rs.order, r.ExamType)
		rs.byType[r.ExamType] = r
	}
	return rs, nil
}

// Get returns the rules for an exam type.
func (rs *Ruleset) Get(examType string) (Rules, error) {
	r, ok := rs.byType[examType]
	if !ok {
		return Rules{}, &UnknownExamTypeError{ExamType: examType}
	}
	return r, nil
}

// All returns the rules in registration order.
func (rs *Ruleset) All() []Rules {
	out := make([]Rules, 0, len(rs.order))
	for _, name := range rs.order {
		out = append(out, rs.byType[name])
	}
	return out
}

type rulesFile struct {
	ExamTypes []Rules `yaml:"exam_types"`
}

// LoadRuleset reads exam rules from a YAML file. An empty path yields the
// built-in rules.
func LoadRuleset(path string) (*Ruleset, error) {
	if path == "" {
		return NewRuleset(DefaultRules()...)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if len(f.ExamTypes) == 0 {
		return nil, fmt.Errorf("rules file %s defines no exam types", path)
	}
	return NewRuleset(f.ExamTypes...)
}

// DefaultRules returns the built-in exam profiles.
func DefaultRules() []Rules {
	return []Rules{
		{
			ExamType:   "Pharmacist (New Hire)",
			Sheet:      "Pharmacist_New_Hire",
			Total:      20,
			Categories: []Quota{{"drug", 10}, {"cosmetics", 10}},
			Difficulty: []Quota{{DifficultyEasy, 2}, {DifficultyMedium, 15}, {DifficultyDifficult, 3}},
		},
		{
			ExamType:   "Assistant (New Hire)",
			Sheet:      "Assistant_New_Hire",
			Total:      20,
			Categories: []Quota{{"assistant", 20}},
			Difficulty: []Quota{{DifficultyEasy, 6}, {DifficultyMedium, 10}, {DifficultyDifficult, 4}},
		},
		{
			ExamType:   "Proficiency Bonus - Pharmacist",
			Sheet:      "Proficiency_Bonus_Pharmacist",
			Total:      30,
			Categories: []Quota{{"drug", 10}, {"cosmetics", 10}, {"management", 5}, {"operations", 5}},
			Difficulty: []Quota{{DifficultyEasy, 5}, {DifficultyMedium, 15}, {DifficultyDifficult, 10}},
		},
		{
			ExamType:   "Proficiency Bonus - Assistant",
			Sheet:      "Proficiency_Bonus_Assistant",
			Total:      30,
			Categories: []Quota{{"assistant", 30}},
			Difficulty: []Quota{{DifficultyEasy, 5}, {DifficultyMedium, 15}, {DifficultyDifficult, 10}},
		},
		{
			ExamType:   "Branch Manager Promotion",
			Sheet:      "Branch_Manager_Promotion",
			Total:      30,
			Categories: []Quota{{"drug", 10}, {"cosmetics", 10}, {"management", 10}, {"operations", 10}},
			Difficulty: []Quota{{DifficultyEasy, 5}, {DifficultyMedium, 10}, {DifficultyDifficult, 15}},
		},
		{
			ExamType:   "Shift Manager Promotion",
			Sheet:      "Shift_Manager_Promotion",
			Total:      30,
			Categories: []Quota{{"drug", 10}, {"cosmetics", 10}, {"management", 10}, {"operations", 10}},
			Difficulty: []Quota{{DifficultyEasy, 5}, {DifficultyMedium, 15}, {DifficultyDifficult, 10}},
		},
	}
}
