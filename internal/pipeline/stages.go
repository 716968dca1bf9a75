package pipeline

// Stage is a step of the job state machine with the percent reported when it
// starts.
type Stage struct {
	Name    string
	Percent float64
	Message string
}

var (
	StageReceived     = Stage{Name: "received", Percent: 0, Message: "Received"}
	StageVerifying    = Stage{Name: "verifying", Percent: 5, Message: "Verifying input"}
	StageExtracting   = Stage{Name: "extracting", Percent: 25, Message: "Extracting audio"}
	StageTranscribing = Stage{Name: "transcribing", Percent: 40, Message: "Transcribing"}
	StageDetecting    = Stage{Name: "detecting", Percent: 60, Message: "Detecting profanity"}
	StageEditing      = Stage{Name: "editing", Percent: 70, Message: "Editing audio"}
	StageCombining    = Stage{Name: "combining", Percent: 85, Message: "Combining audio and video"}
	StageRemuxing     = Stage{Name: "remuxing", Percent: 95, Message: "Remuxing for streaming"}
	StageValidating   = Stage{Name: "validating", Percent: 98, Message: "Validating output"}
	StageComplete     = Stage{Name: "complete", Percent: 100, Message: "Complete"}
)

// combineProgressEnd is the top of the sub-range mapped from ffmpeg progress
// while combining.
const combineProgressEnd = 94

// Stages lists every stage in execution order.
func Stages() []Stage {
	return []Stage{
		StageReceived, StageVerifying, StageExtracting, StageTranscribing, StageDetecting,
		StageEditing, StageCombining, StageRemuxing, StageValidating, StageComplete,
	}
}
