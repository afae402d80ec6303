package exam

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// difficultyOrder fixes bucket iteration so a seeded source reproduces a draw.
var difficultyOrder = []string{DifficultyEasy, DifficultyMedium, DifficultyDifficult}

// Selector builds a balanced question set for an exam type.
type Selector struct {
	rules  *Ruleset
	strict bool

	mu   sync.Mutex
	rand *rand.Rand
}

// NewSelector creates a Selector. A nil src seeds from the clock. In strict
// mode a difficulty bucket that cannot meet its target fails the selection;
// otherwise the shortfall is filled from other difficulties of the category.
func NewSelector(rules *Ruleset, src rand.Source, strict bool) *Selector {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Selector{
		rules:  rules,
		strict: strict,
		rand:   rand.New(src),
	}
}

// Select draws the question set for examType from bank.
func (s *Selector) Select(examType string, bank []Question) ([]Question, error) {
	rules, err := s.rules.Get(examType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	used := make(map[string]bool)
	selected := make([]Question, 0, rules.Total)

	for _, cat := range rules.Categories {
		pool := categoryPool(bank, cat.Name, used)
		if len(pool) < cat.Count {
			return nil, &InsufficientPoolError{
				ExamType: examType,
				Category: cat.Name,
				Need:     cat.Count,
				Have:     len(pool),
			}
		}

		targets := apportion(rules.Difficulty, cat.Count, rules.Total)
		picked, err := s.pick(pool, cat.Count, targets)
		if err != nil {
			if pe, ok := err.(*InsufficientPoolError); ok {
				pe.ExamType = examType
				pe.Category = cat.Name
			}
			return nil, err
		}
		for _, q := range picked {
			used[q.Key] = true
		}
		selected = append(selected, picked...)
	}

	s.rand.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	if len(selected) > rules.Total {
		selected = selected[:rules.Total]
	}
	return selected, nil
}

// categoryPool returns the bank questions tagged category, deduplicated by
// normalized text and excluding keys already taken by earlier categories.
func categoryPool(bank []Question, category string, used map[string]bool) []Question {
	seen := make(map[string]bool)
	pool := make([]Question, 0)
	for _, q := range bank {
		if NormalizeCategory(q.Category) != category {
			continue
		}
		if q.Key == "" {
			q.Key = NormalizeText(q.Prompt)
		}
		if q.Key == "" || seen[q.Key] || used[q.Key] {
			continue
		}
		seen[q.Key] = true
		q.Category = category
		q.Difficulty = NormalizeDifficulty(q.Difficulty)
		pool = append(pool, q)
	}
	return pool
}

// apportion scales the exam-wide difficulty quotas to one category using the
// largest-remainder method, so the targets never exceed the category count.
// Ties go to the earlier quota.
func apportion(quotas []Quota, count, total int) []Quota {
	out := make([]Quota, len(quotas))
	if total <= 0 {
		return out
	}

	type remainder struct {
		idx int
		rem int
	}
	rems := make([]remainder, len(quotas))

	sum, assigned := 0, 0
	for i, q := range quotas {
		scaled := q.Count * count
		out[i] = Quota{Name: q.Name, Count: scaled / total}
		rems[i] = remainder{idx: i, rem: scaled % total}
		assigned += out[i].Count
		sum += q.Count
	}

	// Rounded sum of the exact shares, capped at the category count.
	target := (2*sum*count + total) / (2 * total)
	if target > count {
		target = count
	}

	sort.SliceStable(rems, func(a, b int) bool { return rems[a].rem > rems[b].rem })
	for k := 0; assigned < target && k < len(rems); k++ {
		out[rems[k].idx].Count++
		assigned++
	}
	return out
}

func (s *Selector) pick(pool []Question, count int, targets []Quota) ([]Question, error) {
	buckets := make(map[string][]Question, len(difficultyOrder))
	for _, q := range pool {
		buckets[q.Difficulty] = append(buckets[q.Difficulty], q)
	}
	for _, d := range difficultyOrder {
		b := buckets[d]
		s.rand.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
	}

	selected := make([]Question, 0, count)
	used := make(map[string]bool, count)

	for _, i := range s.rand.Perm(len(targets)) {
		t := targets[i]
		b := buckets[t.Name]
		need := t.Count
		for need > 0 && len(b) > 0 && len(selected) < count {
			q := b[len(b)-1]
			b = b[:len(b)-1]
			if used[q.Key] {
				continue
			}
			used[q.Key] = true
			selected = append(selected, q)
			need--
		}
		buckets[t.Name] = b

		if need > 0 && s.strict {
			return nil, &InsufficientPoolError{
				Difficulty: t.Name,
				Need:       t.Count,
				Have:       t.Count - need,
			}
		}
	}

	var leftovers []Question
	for _, d := range difficultyOrder {
		leftovers = append(leftovers, buckets[d]...)
	}
	s.rand.Shuffle(len(leftovers), func(i, j int) {
		leftovers[i], leftovers[j] = leftovers[j], leftovers[i]
	})
	for _, q := range leftovers {
		if len(selected) >= count {
			break
		}
		if used[q.Key] {
			continue
		}
		used[q.Key] = true
		selected = append(selected, q)
	}
	return selected, nil
}
