package user

import "encoding/json"

// RiskResult is a scored profile. Score and category only ever travel together.
type RiskResult struct {
	Score     int
	Category  RiskCategory
	Breakdown map[string]int
}

// Profile holds identity and the questionnaire outcome
type Profile struct {
	Name           *string
	RiskParameters RiskParameters

	risk *RiskResult
}

type profileJSON struct {
	Name                   *string        `json:"name"`
	RiskParameters         RiskParameters `json:"risk_parameters"`
	RiskScore              *int           `json:"risk_score"`
	RiskCategory           *RiskCategory  `json:"risk_category"`
	RiskCalculationDetails map[string]int `json:"risk_calculation_details"`
}

// Risk returns the scored result, if the questionnaire has been completed
func (p *Profile) Risk() (RiskResult, bool) {
	if p.risk == nil {
		return RiskResult{}, false
	}
	return *p.risk, true
}

// SetRiskResult records score, category and breakdown together
func (p *Profile) SetRiskResult(res RiskResult) {
	breakdown := make(map[string]int, len(res.Breakdown))
	for k, v := range res.Breakdown {
		breakdown[k] = v
	}
	res.Breakdown = breakdown
	p.risk = &res
}

// ClearRiskResult removes score, category and breakdown together
func (p *Profile) ClearRiskResult() {
	p.risk = nil
}

// MarshalJSON writes the persisted profile shape
func (p Profile) MarshalJSON() ([]byte, error) {
	out := profileJSON{
		Name:           p.Name,
		RiskParameters: p.RiskParameters,
	}
	if out.RiskParameters == nil {
		out.RiskParameters = RiskParameters{}
	}
	if p.risk != nil {
		score := p.risk.Score
		category := p.risk.Category
		out.RiskScore = &score
		out.RiskCategory = &category
		out.RiskCalculationDetails = p.risk.Breakdown
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the persisted profile. A document holding only one of
// score and category is treated as unscored.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var in profileJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.Name = in.Name
	p.RiskParameters = in.RiskParameters
	if p.RiskParameters == nil {
		p.RiskParameters = RiskParameters{}
	}
	p.risk = nil
	if in.RiskScore != nil && in.RiskCategory != nil {
		p.risk = &RiskResult{
			Score:     *in.RiskScore,
			Category:  *in.RiskCategory,
			Breakdown: in.RiskCalculationDetails,
		}
	}
	return nil
}
