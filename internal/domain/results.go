package domain

// SuiteStage is reported per suite; partial runs are not distinguished.
const SuiteStageComplete = "complete"

type LogLink struct {
	Name string
	Href string
}

type SuiteSummary struct {
	Name   string
	Result RunResult
	Tests  int
	Stage  string
	Logs   []LogLink
}

// ResultsSummary is the aggregate verdict for a finished run.
type ResultsSummary struct {
	Overall RunResult
	Suites  []SuiteSummary
}
