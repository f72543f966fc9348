package schema

// ScanRequest is an inbound request to scan one user.
type ScanRequest struct {
	Username string `json:"username"`
	Token    string `json:"-"`
	Fast     bool   `json:"fast"`
	Fresh    bool   `json:"fresh"`
}

// ScanResponse is returned for every scan, analysis and score request.
type ScanResponse struct {
	Success    bool            `json:"success"`
	Status     ScanStatus      `json:"status"`
	TotalRepos int             `json:"total_repos"`
	Snapshot   *Snapshot       `json:"snapshot,omitempty"`
	Score      *ScoreResult    `json:"score,omitempty"`
	Bundle     *AnalysisBundle `json:"bundle,omitempty"`
	RateLimit  *RateLimit      `json:"rate_limit,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	Persisted  bool            `json:"persisted"`
	Error      string          `json:"error,omitempty"`
}

// WeightRow describes one component for the weights listing.
type WeightRow struct {
	Kind        ComponentKind `json:"kind"`
	Weight      float64       `json:"weight"`
	Description string        `json:"description"`
	Rationale   []string      `json:"rationale"`
}

// GradeBand is one inclusive lower bound of the grade table.
type GradeBand struct {
	Grade Grade   `json:"grade"`
	Min   float64 `json:"min"`
}

// WeightsRenderModel is the full description of the scoring model.
type WeightsRenderModel struct {
	Components []WeightRow `json:"components"`
	Grades     []GradeBand `json:"grades"`
	Formula    string      `json:"formula"`
}
