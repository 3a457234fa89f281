// Package insights generates narrative performance summaries with the
// Gemini API. Without an API key, or when a generation call fails, the
// service falls back to canned text so the dashboard never breaks on a
// missing upstream.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dialndine/omnidesk/backend/internal/config"
	"github.com/dialndine/omnidesk/backend/internal/types"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const fallbackTeamAnalysis = `### 📊 Executive Summary: Team Performance Report

**1. Overall Team Health**
*   **Volume:** Strong call volume indicating high demand today.
*   **Resolution:** Resolution rates are healthy, though resolution time varies.

**2. Quality Assurance Insights**
*   **Strengths:** "Phone Etiquette" and "Capturing Information" are consistently high (90%+).
*   **Areas for Improvement:** "Promotion/Upselling" is the weakest metric across the team.

**3. Top Performers** 🏆
*   Agents balancing speed (AHT) and quality scores lead the board today.

**4. Coaching Opportunities** 🎯
*   Review agents with upselling scores below 70 for targeted coaching.

**5. Strategic Recommendation** 🚀
*   **Action:** Implement a 15-minute "Upselling Best Practices" huddle tomorrow morning. Focus on transition phrases for the current promo.
`

func fallbackCoachingTips(name string) string {
	return fmt.Sprintf(`**Coaching Tips for %s:**

1.  **Boost Upselling:** Your promotion score is currently your lowest metric. Try offering the "Meal Deal Upgrade" immediately after confirming the main entree.
2.  **Active Listening:** Great job on phone etiquette! To improve *Problem Solving*, try repeating the customer's issue back to them to ensure alignment before searching for a fix.
3.  **Knowledge Base:** Your AHT is solid. To shave off another 10 seconds, remember to use the Quick-Search shortcuts (Ctrl+K) in the portal.
`, name)
}

// Generator is the model call the service depends on. Separated out so
// tests can stub the upstream.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("model returned empty response")
	}
	return text, nil
}

// Service produces the team analysis and per-agent coaching tips
type Service struct {
	gen    Generator
	logger zerolog.Logger
}

// NewService creates a Service. Without an API key the generator stays
// nil and every call serves the canned fallback.
func NewService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	s := &Service{logger: logger.With().Str("component", "insights").Logger()}

	if cfg.GeminiAPIKey == "" {
		s.logger.Warn().Msg("no Gemini API key configured, insights run in demo mode")
		return s, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.gen = &geminiGenerator{client: client, model: cfg.GeminiModel}
	return s, nil
}

// NewServiceWithGenerator wires a custom generator, used in tests
func NewServiceWithGenerator(gen Generator, logger zerolog.Logger) *Service {
	return &Service{gen: gen, logger: logger.With().Str("component", "insights").Logger()}
}

// TeamAnalysis summarizes the whole roster in markdown
func (s *Service) TeamAnalysis(ctx context.Context, agents []*types.Agent) string {
	if s.gen == nil {
		return fallbackTeamAnalysis
	}

	data, err := json.Marshal(summarizeAgents(agents))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal roster for analysis")
		return fallbackTeamAnalysis
	}

	prompt := fmt.Sprintf(`You are a senior Operations Manager for "Dial n Dine", a fast food call center.
Analyze the following JSON performance data for our helpdesk agents:

%s

Please provide a concise Executive Summary Report in Markdown format with the following sections:
1. **Overall Team Health**: Summary of volume, AHT, and Resolution Rates.
2. **Quality Assurance Insights**: specifically analyze "Promotion/Upselling" and "Phone Etiquette" scores across the team. Who is struggling?
3. **Top Performers**: Identify the top 2 agents based on a balance of Operational Efficiency (AHT, Answered Calls) and Quality Scores.
4. **Coaching Opportunities**: Identify 2 agents who need help and specific advice (e.g., low Upselling score).
5. **Strategic Recommendation**: One high-level action item for next week.

Keep the tone professional yet encouraging. Use bullet points and bold text for readability.`, data)

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error().Err(err).Msg("team analysis generation failed, serving fallback")
		return fallbackTeamAnalysis
	}
	return text
}

// CoachingTips produces three short tips for one agent in markdown
func (s *Service) CoachingTips(ctx context.Context, agent *types.Agent) string {
	if s.gen == nil {
		return fallbackCoachingTips(agent.Name)
	}

	prompt := fmt.Sprintf(`You are a supportive Performance Coach. Provide 3 short, actionable tips for agent %s based on their stats:

Operational:
%s

Quality Scores (0-100):
%s

Focus on their lowest quality scores if any are below 80.
Format as a simple markdown list. Be direct and helpful.`,
		agent.Name, describeOperational(agent), describeQuality(agent))

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error().Err(err).Msg("coaching tip generation failed, serving fallback")
		return fallbackCoachingTips(agent.Name)
	}
	return text
}

type agentSummary struct {
	Name    string             `json:"name"`
	Status  types.AgentStatus  `json:"status"`
	History []types.DailyStats `json:"history"`
	Quality *types.Kpis        `json:"quality,omitempty"`
}

func summarizeAgents(agents []*types.Agent) []agentSummary {
	out := make([]agentSummary, 0, len(agents))
	for _, a := range agents {
		s := agentSummary{
			Name:    a.Name,
			Status:  a.Status,
			History: a.History,
		}
		if len(a.Evaluations) > 0 {
			s.Quality = &a.Evaluations[len(a.Evaluations)-1].Kpis
		}
		out = append(out, s)
	}
	return out
}

func describeOperational(a *types.Agent) string {
	if len(a.History) == 0 {
		return "- No activity recorded yet"
	}
	latest := a.History[len(a.History)-1]
	return fmt.Sprintf("- Answered Calls: %d\n- AHT: %s\n- Resolution Rate: %d%%",
		latest.AnsweredCalls, latest.AHT, latest.ResolutionRate)
}

func describeQuality(a *types.Agent) string {
	if len(a.Evaluations) == 0 {
		return "- No evaluations recorded yet"
	}
	k := a.Evaluations[len(a.Evaluations)-1].Kpis
	lines := []string{
		fmt.Sprintf("- Etiquette: %.0f", k.Etiquette),
		fmt.Sprintf("- Product Knowledge: %.0f", k.Product),
		fmt.Sprintf("- Upselling: %.0f", k.Upsell),
		fmt.Sprintf("- Problem Solving: %.0f", k.Solving),
	}
	return strings.Join(lines, "\n")
}
