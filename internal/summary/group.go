package summary

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// GroupKey selects how trials are grouped.
type GroupKey string

const (
	BySubject          GroupKey = "subject"
	ByCondition        GroupKey = "condition"
	BySubjectCondition GroupKey = "subject_condition"
)

// ParseGroupKey accepts the names above, case-insensitively.
func ParseGroupKey(s string) (GroupKey, error) {
	switch k := GroupKey(strings.ToLower(strings.TrimSpace(s))); k {
	case BySubject, ByCondition, BySubjectCondition:
		return k, nil
	default:
		return "", fmt.Errorf("unknown group key %q (want subject, condition or subject_condition)", s)
	}
}

func (k GroupKey) of(s *TrialSummary) string {
	switch k {
	case BySubject:
		return s.SubjectID
	case ByCondition:
		return s.Condition
	default:
		return s.SubjectID + "/" + s.Condition
	}
}

// GroupSummary is the spread of trial medians within one group. When every
// trial in the group failed, Median, Q1 and Q3 are NaN and encode as null.
type GroupSummary struct {
	Key      string
	Trials   int
	Excluded int
	Median   float64
	Q1       float64
	Q3       float64
}

type groupSummaryJSON struct {
	Key      string   `json:"key"`
	Trials   int      `json:"trials"`
	Excluded int      `json:"excluded"`
	Median   *float64 `json:"median"`
	Q1       *float64 `json:"q1"`
	Q3       *float64 `json:"q3"`
}

func (g GroupSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(groupSummaryJSON{
		Key:      g.Key,
		Trials:   g.Trials,
		Excluded: g.Excluded,
		Median:   nullable(g.Median),
		Q1:       nullable(g.Q1),
		Q3:       nullable(g.Q3),
	})
}

func (g *GroupSummary) UnmarshalJSON(b []byte) error {
	var raw groupSummaryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*g = GroupSummary{
		Key:      raw.Key,
		Trials:   raw.Trials,
		Excluded: raw.Excluded,
		Median:   fromNullable(raw.Median),
		Q1:       fromNullable(raw.Q1),
		Q3:       fromNullable(raw.Q3),
	}
	return nil
}

// GroupBy gathers trial final-score medians per group and describes them.
// Failed trials are counted as excluded. Groups are ordered by key.
func GroupBy(summaries []*TrialSummary, key GroupKey) []GroupSummary {
	medians := make(map[string][]float64)
	excluded := make(map[string]int)
	for _, s := range summaries {
		k := key.of(s)
		if s.Status == StatusFailed || math.IsNaN(s.Final.Median) {
			excluded[k]++
			if _, ok := medians[k]; !ok {
				medians[k] = nil
			}
			continue
		}
		medians[k] = append(medians[k], s.Final.Median)
	}

	keys := make([]string, 0, len(medians))
	for k := range medians {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]GroupSummary, 0, len(keys))
	for _, k := range keys {
		m := medians[k]
		sort.Float64s(m)
		out = append(out, GroupSummary{
			Key:      k,
			Trials:   len(m),
			Excluded: excluded[k],
			Median:   Percentile(m, 50),
			Q1:       Percentile(m, 25),
			Q3:       Percentile(m, 75),
		})
	}
	return out
}
