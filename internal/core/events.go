package core

// Stage is one of the nine pipeline stages (§4.7). The string value is the
// exact wire name used in ProgressEvent.Step (§6).
type Stage string

const (
	StageParse    Stage = "input_parse"
	StageClassify Stage = "classify"
	StageQueryGen Stage = "query_gen"
	StageRetrieve Stage = "retrieve"
	StageAnalyze  Stage = "analyze"
	StageOutline  Stage = "outline"
	StageContents Stage = "contents"
	StageQuality  Stage = "quality"
	StageAssemble Stage = "assemble"
)

// StagePercentage is the fixed progress percentage for each stage, per §4.7/§6.
var StagePercentage = map[Stage]int{
	StageParse:    10,
	StageClassify: 20,
	StageQueryGen: 30,
	StageRetrieve: 45,
	StageAnalyze:  55,
	StageOutline:  65,
	StageContents: 85,
	StageQuality:  95,
	StageAssemble: 100,
}

// StageOrder is the fixed sequential order of the state machine.
var StageOrder = []Stage{
	StageParse, StageClassify, StageQueryGen, StageRetrieve,
	StageAnalyze, StageOutline, StageContents, StageQuality, StageAssemble,
}

// ProgressEvent is the "progress" SSE envelope (§6).
type ProgressEvent struct {
	Step       Stage  `json:"step"`
	Percentage int    `json:"percentage"`
	Message    string `json:"message,omitempty"`
}

// CompleteEvent is the terminal "complete" SSE envelope.
type CompleteEvent struct {
	Markdown string `json:"markdown"`
	DraftID  string `json:"draft_id"`
}

// ErrorEvent is the terminal "error" SSE envelope.
type ErrorEvent struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
