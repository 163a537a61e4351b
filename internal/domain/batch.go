package domain

import "fmt"

// Stage names a pipeline step; failures are attributed to one.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageNormalize Stage = "normalize"
	StageRebalance Stage = "rebalance"
	StageMedia     Stage = "media"
	StageLinks     Stage = "links"
	StageTOC       Stage = "toc"
	StageRecommend Stage = "recommend"
	StageStore     Stage = "store"
)

// Failure records a document that could not be enriched.
type Failure struct {
	Slug  string `json:"slug"`
	Stage Stage  `json:"stage"`
	Err   string `json:"error"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("document %s failed at %s: %s", f.Slug, f.Stage, f.Err)
}

// BatchReport summarises one batch run.
type BatchReport struct {
	RunID    string    `json:"run_id"`
	Enriched []string  `json:"enriched"`
	Skipped  []string  `json:"skipped"`
	Rejected []string  `json:"rejected"`
	Failed   []Failure `json:"failed"`
}
