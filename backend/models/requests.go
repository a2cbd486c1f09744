package models

// AdvanceReadingRequest feeds a reading event into progressive tasks.
// Kind is one of "pages", "favorites", "borrows".
type AdvanceReadingRequest struct {
	Kind   string `json:"kind"`
	Amount int    `json:"amount"`
}

// SetGoalRequest creates or retargets a reading goal for the current
// period. Type is "monthly" or "yearly".
type SetGoalRequest struct {
	Type   string `json:"type"`
	Target int    `json:"target"`
}

// GoalProgressRequest records finished books against the current goals.
type GoalProgressRequest struct {
	Books int `json:"books"`
}
