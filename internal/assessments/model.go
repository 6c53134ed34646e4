package assessments

import (
	"encoding/json"
	"strings"
	"time"

	"revops-backend/internal/scoring"
)

// Lead holds the optional contact fields captured with a submission.
type Lead struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
	Role    string `json:"role,omitempty"`
}

// Normalize trims every field.
func (l Lead) Normalize() Lead {
	return Lead{
		Name:    strings.TrimSpace(l.Name),
		Email:   strings.TrimSpace(l.Email),
		Company: strings.TrimSpace(l.Company),
		Role:    strings.TrimSpace(l.Role),
	}
}

// Assessment is one scored questionnaire submission.
type Assessment struct {
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"createdAt"`
	Lead          Lead            `json:"lead"`
	Answers       scoring.Answers `json:"answers"`
	Scores        scoring.Scores  `json:"scores"`
	MaturityLevel string          `json:"maturityLevel"`
	AIAnalysis    json.RawMessage `json:"aiAnalysis,omitempty"`
	AIActionPlan  json.RawMessage `json:"aiActionPlan,omitempty"`
	AIGeneratedAt *time.Time      `json:"aiGeneratedAt,omitempty"`
}

// HasAI reports whether an enrichment run has completed for the assessment.
func (a Assessment) HasAI() bool {
	return a.AIGeneratedAt != nil
}

// Record is the flat row projection used by the admin listing and export.
type Record struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	LeadName      *string   `json:"lead_name"`
	LeadEmail     *string   `json:"lead_email"`
	LeadCompany   *string   `json:"lead_company"`
	LeadRole      *string   `json:"lead_role"`
	ScoreStrategy float64   `json:"score_strategy"`
	ScoreProcess  float64   `json:"score_process"`
	ScoreData     float64   `json:"score_data"`
	ScoreTech     float64   `json:"score_tech"`
	ScorePeople   float64   `json:"score_people"`
	ScoreJourney  float64   `json:"score_journey"`
	ScoreOverall  float64   `json:"score_overall"`
	MaturityLevel string    `json:"maturity_level"`
}

func recordOf(a Assessment) Record {
	return Record{
		ID:            a.ID,
		CreatedAt:     a.CreatedAt,
		LeadName:      nullable(a.Lead.Name),
		LeadEmail:     nullable(a.Lead.Email),
		LeadCompany:   nullable(a.Lead.Company),
		LeadRole:      nullable(a.Lead.Role),
		ScoreStrategy: a.Scores.Strategy,
		ScoreProcess:  a.Scores.Process,
		ScoreData:     a.Scores.Data,
		ScoreTech:     a.Scores.Tech,
		ScorePeople:   a.Scores.People,
		ScoreJourney:  a.Scores.Journey,
		ScoreOverall:  a.Scores.Overall,
		MaturityLevel: a.MaturityLevel,
	}
}

// Recent is an entry of the admin "latest submissions" list.
type Recent struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	LeadName      *string   `json:"lead_name"`
	LeadCompany   *string   `json:"lead_company"`
	LeadEmail     *string   `json:"lead_email"`
	ScoreOverall  float64   `json:"score_overall"`
	MaturityLevel string    `json:"maturity_level"`
}

// WeekTrend is the submission count and mean overall score of one ISO week.
type WeekTrend struct {
	Week       string  `json:"week"`
	Count      int     `json:"count"`
	AvgOverall float64 `json:"avg_overall"`
}

// Stats is the admin dashboard bundle.
type Stats struct {
	Total        int                `json:"total"`
	AvgScores    map[string]float64 `json:"avgScores"`
	Distribution map[string]int     `json:"distribution"`
	Recent       []Recent           `json:"recent"`
	Weekly       []WeekTrend        `json:"weekly"`
}

// Page is one page of the admin listing.
type Page struct {
	Items []Record `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Pages int      `json:"pages"`
}

// Event is an analytics event. AssessmentID is advisory and not checked.
type Event struct {
	ID           int64           `json:"id"`
	Type         string          `json:"type"`
	AssessmentID string          `json:"assessmentId,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// EventCount is the number of events recorded for one type.
type EventCount struct {
	EventType string `json:"event_type"`
	Count     int    `json:"count"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
