package views

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"tutorportal/internal/homework"
	"tutorportal/internal/model"
	"tutorportal/internal/request"
)

// Ranking is the ranking view model of a group.
type Ranking struct {
	GroupID   int64               `json:"groupId"`
	Standings []homework.Standing `json:"standings"`
	Skipped   int                 `json:"skipped"`

	results []model.Result
}

// RankingView loads group rankings.
type RankingView struct {
	api     API
	tracker *request.Tracker
	logger  *zerolog.Logger

	mu   sync.RWMutex
	last *Ranking
}

func NewRankingView(api API, logger *zerolog.Logger) *RankingView {
	return &RankingView{api: api, tracker: request.NewTracker(), logger: logger}
}

// Load fetches the results of a group and ranks its students by points.
// Results that cannot be attributed to a student are counted in Skipped.
func (v *RankingView) Load(ctx context.Context, groupID int64) (*Ranking, error) {
	h, ctx := v.tracker.Begin(ctx)
	defer h.Cancel()

	page, err := v.api.GroupResults(ctx, groupID)
	if err != nil {
		return nil, loadFailure(h, err)
	}

	r := &Ranking{
		GroupID:   groupID,
		Standings: homework.Rank(page.Items),
		Skipped:   len(page.Malformed),
		results:   page.Items,
	}
	if !h.Apply(func() {
		v.mu.Lock()
		v.last = r
		v.mu.Unlock()
	}) {
		return nil, ErrSuperseded
	}
	if r.Skipped > 0 {
		v.logger.Warn().Int("count", r.Skipped).Int64("group_id", groupID).Msg("results without student skipped")
	}
	return r, nil
}

// Last returns the most recently applied ranking.
func (v *RankingView) Last() (*Ranking, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.last, v.last != nil
}

func (v *RankingView) Close() {
	v.tracker.Stop()
}
