package entity

// RunSummary carries the counters reported at the end of a run.
type RunSummary struct {
	TotalProcessed int
	TotalUpdated   int
	TotalFailed    int
	Batches        int
}
