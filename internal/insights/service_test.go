package insights

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func sampleAgent() *types.Agent {
	return &types.Agent{
		ID:     "sarah-jenkins",
		Name:   "Sarah Jenkins",
		Email:  "sarah.j@dialndine.com",
		Status: types.StatusOnline,
		History: []types.DailyStats{
			{Date: "2026-02-01", AnsweredCalls: 45, AHT: "90s", ResolutionRate: 92},
		},
		Evaluations: []types.Evaluation{
			{Date: "2026-02-01", Score: 94, Kpis: types.Kpis{
				Capture: 95, Etiquette: 98, Solving: 90, Product: 92, Promo: 80, Upsell: 85,
			}},
		},
	}
}

func TestTeamAnalysisDemoMode(t *testing.T) {
	s := &Service{logger: zerolog.Nop()}

	text := s.TeamAnalysis(context.Background(), []*types.Agent{sampleAgent()})
	assert.Contains(t, text, "Executive Summary")
	assert.Contains(t, text, "Upselling Best Practices")
}

func TestTeamAnalysisUsesGenerator(t *testing.T) {
	gen := &stubGenerator{reply: "## Generated Report"}
	s := NewServiceWithGenerator(gen, zerolog.Nop())

	text := s.TeamAnalysis(context.Background(), []*types.Agent{sampleAgent()})
	assert.Equal(t, "## Generated Report", text)

	assert.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Sarah Jenkins")
	assert.Contains(t, gen.prompts[0], "Dial n Dine")
}

func TestTeamAnalysisFallsBackOnError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("quota exceeded")}
	s := NewServiceWithGenerator(gen, zerolog.Nop())

	text := s.TeamAnalysis(context.Background(), []*types.Agent{sampleAgent()})
	assert.Contains(t, text, "Executive Summary")
}

func TestCoachingTipsDemoMode(t *testing.T) {
	s := &Service{logger: zerolog.Nop()}

	text := s.CoachingTips(context.Background(), sampleAgent())
	assert.Contains(t, text, "Coaching Tips for Sarah Jenkins")
}

func TestCoachingTipsPromptCarriesStats(t *testing.T) {
	gen := &stubGenerator{reply: "1. Tip"}
	s := NewServiceWithGenerator(gen, zerolog.Nop())

	text := s.CoachingTips(context.Background(), sampleAgent())
	assert.Equal(t, "1. Tip", text)

	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "Answered Calls: 45")
	assert.Contains(t, prompt, "AHT: 90s")
	assert.Contains(t, prompt, "Resolution Rate: 92%")
	assert.Contains(t, prompt, "Etiquette: 98")
	assert.Contains(t, prompt, "Upselling: 85")
}

func TestCoachingTipsFallsBackOnError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("timeout")}
	s := NewServiceWithGenerator(gen, zerolog.Nop())

	text := s.CoachingTips(context.Background(), sampleAgent())
	assert.Contains(t, text, "Coaching Tips for Sarah Jenkins")
}

func TestCoachingTipsWithoutHistory(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	s := NewServiceWithGenerator(gen, zerolog.Nop())

	agent := &types.Agent{ID: "new", Name: "New Agent"}
	s.CoachingTips(context.Background(), agent)

	prompt := gen.prompts[0]
	assert.True(t, strings.Contains(prompt, "No activity recorded yet"))
	assert.True(t, strings.Contains(prompt, "No evaluations recorded yet"))
}
