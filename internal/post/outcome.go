package post

// Status is the end state of one record in a batch.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	// StatusSkipped records never reached the platform, usually because no body
	// could be generated for them.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) Status {
	switch s {
	case "succeeded":
		return StatusSucceeded
	case "skipped":
		return StatusSkipped
	}
	return StatusFailed
}

// Outcome is what a submission (or a skipped record) produces. It is not
// modified once returned.
type Outcome struct {
	Record Record
	Status Status
	// FailedStage is StageNone unless Status is StatusFailed because of a stage.
	FailedStage Stage
	// Diagnostic is the path of the screenshot taken when a fatal stage failed.
	Diagnostic string
	Err        error
	Stages     []StageResult
	// PostURL is where the published post lives.
	PostURL string
	// SessionLost is set when the failure left the session unusable.
	SessionLost bool
	// Attempts is how many times the orchestrator invoked the submission.
	Attempts int
}

func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Stage returns the result of the given stage and whether it ran.
func (o Outcome) Stage(stage Stage) (StageResult, bool) {
	for _, r := range o.Stages {
		if r.Stage == stage {
			return r, true
		}
	}
	return StageResult{}, false
}
