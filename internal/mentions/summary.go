package mentions

import (
	"context"
	"fmt"

	"github.com/JaimeStill/mention-analyzer/pkg/repository"
)

// GroupCount is the number of mentions sharing a status and, for analyzed
// mentions, a sentiment.
type GroupCount struct {
	Status    Status
	Sentiment *Sentiment
	Count     int
}

const summaryQuery = `
	SELECT status, analysis_result->>'sentiment', COUNT(*)
	FROM mentions
	GROUP BY status, analysis_result->>'sentiment'`

// Summary counts mentions by status and completed mentions by sentiment.
// A single grouped statement reads one snapshot, so the totals agree.
func (r *repo) Summary(ctx context.Context) (*Summary, error) {
	groups, err := repository.QueryMany(ctx, r.db, summaryQuery, nil, scanGroupCount)
	if err != nil {
		return nil, fmt.Errorf("summarize mentions: %w", err)
	}
	return Summarize(groups), nil
}

// Summarize folds grouped counts into a Summary. Every status is present,
// zero-filled. Sentiments are counted for completed mentions only, so their
// sum never exceeds ByStatus[StatusCompleted].
func Summarize(groups []GroupCount) *Summary {
	s := &Summary{
		ByStatus:    make(map[Status]int, len(Statuses)),
		BySentiment: make(map[Sentiment]int),
	}
	for _, status := range Statuses {
		s.ByStatus[status] = 0
	}

	for _, g := range groups {
		s.TotalMentions += g.Count
		s.ByStatus[g.Status] += g.Count
		if g.Status == StatusCompleted && g.Sentiment != nil {
			s.BySentiment[*g.Sentiment] += g.Count
		}
	}

	return s
}

func scanGroupCount(s repository.Scanner) (GroupCount, error) {
	var (
		g         GroupCount
		sentiment *string
	)
	if err := s.Scan(&g.Status, &sentiment, &g.Count); err != nil {
		return g, err
	}
	if sentiment != nil {
		v := Sentiment(*sentiment)
		g.Sentiment = &v
	}
	return g, nil
}
