package post

// Stage is one step of submitting a post, in the order they run.
type Stage int

const (
	StageNone Stage = iota
	StageNavigateEditor
	StageDismissTransients
	StageEnterTitle
	StageEnterBody
	StageAttachImages
	StagePublish
	StageConfirmPublished
	StageExitContext
)

var stageNames = map[Stage]string{
	StageNone:              "none",
	StageNavigateEditor:    "navigate-editor",
	StageDismissTransients: "dismiss-transients",
	StageEnterTitle:        "enter-title",
	StageEnterBody:         "enter-body",
	StageAttachImages:      "attach-images",
	StagePublish:           "publish",
	StageConfirmPublished:  "confirm-published",
	StageExitContext:       "exit-context",
}

func (s Stage) String() string {
	name, ok := stageNames[s]
	if !ok {
		return "unknown"
	}
	return name
}

// ParseStage is the inverse of Stage.String, unknown names map to StageNone.
func ParseStage(name string) Stage {
	for stage, n := range stageNames {
		if n == name {
			return stage
		}
	}
	return StageNone
}

// StageStatus is how a single stage ended.
type StageStatus int

const (
	StageSucceeded StageStatus = iota
	// StageSkipped is an optional stage that had nothing to do, it counts as success.
	StageSkipped
	// StageDegraded made partial progress that does not block the post.
	StageDegraded
	StageFailed
)

func (s StageStatus) String() string {
	switch s {
	case StageSucceeded:
		return "succeeded"
	case StageSkipped:
		return "skipped"
	case StageDegraded:
		return "degraded"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// StageResult is produced for every stage that ran.
type StageResult struct {
	Stage    Stage
	Status   StageStatus
	Attempts int
	// Err is set for failed and degraded stages.
	Err        error
	Diagnostic string
}

func (r StageResult) Succeeded() bool {
	return r.Status != StageFailed
}
