package onboarding

import "time"

// Phase is the calibration sub-state within step 4.
type Phase string

const (
	PhaseInput      Phase = "input"
	PhaseGenerating Phase = "generating"
	PhaseSelecting  Phase = "selecting"
)

// Candidate is one generated image and the preset that produced it.
type Candidate struct {
	PresetKey string `json:"presetKey"`
	Style     string `json:"style"`
	Image     string `json:"image"`
}

// CalibrationSession is the step 4 working state. It is created on first
// entry to step 4 and never persisted on its own.
type CalibrationSession struct {
	Description   string      `json:"description"`
	Candidates    []Candidate `json:"candidates"`
	SelectedIndex *int        `json:"selectedIndex"`
	Round         int         `json:"round"`
	IsCalibrated  bool        `json:"isCalibrated"`
	Phase         Phase       `json:"phase"`
	// Attempt identifies the in-flight generation; results carrying an older
	// attempt are dropped.
	Attempt   int       `json:"attempt"`
	StartedAt time.Time `json:"startedAt,omitempty"`
	Generated bool      `json:"generated"`
	LastError string    `json:"lastError,omitempty"`
}

func newCalibrationSession() *CalibrationSession {
	return &CalibrationSession{Round: 1, Phase: PhaseInput, Candidates: []Candidate{}}
}

func (c *CalibrationSession) clearSelection() {
	c.Candidates = []Candidate{}
	c.SelectedIndex = nil
	c.IsCalibrated = false
}

// Request is one generation call of a round.
type Request struct {
	Preset StylePreset `json:"preset"`
	Prompt string      `json:"prompt"`
}

// Round is the work order produced by BeginRound.
type Round struct {
	Attempt  int       `json:"attempt"`
	Number   int       `json:"number"`
	Requests []Request `json:"requests"`
}
