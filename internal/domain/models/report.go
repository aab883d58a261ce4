package models

// Report is a finished evaluation or stress report on its way to storage and streaming.
// Exactly one of the fields is set.
type Report struct {
	Evaluation *EvaluationResult
	Stress     *StressTestReport
}

// ID is the run ID of an evaluation or the ID of a stress report.
func (r *Report) ID() string {
	switch {
	case r == nil:
		return ""
	case r.Evaluation != nil:
		return r.Evaluation.RunID
	case r.Stress != nil:
		return r.Stress.ID
	}
	return ""
}

// Kind names the report type for logs and metrics.
func (r *Report) Kind() string {
	switch {
	case r == nil:
		return ""
	case r.Evaluation != nil:
		return "evaluation"
	case r.Stress != nil:
		return "stress"
	}
	return ""
}
