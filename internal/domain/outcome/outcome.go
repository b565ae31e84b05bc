package outcome

// Status of a best-effort operation. Degraded paths report SkippedDegraded
// instead of failing the caller.
type Status string

const (
	StatusCommitted       Status = "COMMITTED"
	StatusReplayed        Status = "REPLAYED"
	StatusSkippedDegraded Status = "SKIPPED_DEGRADED"
)

type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func Committed() Outcome { return Outcome{Status: StatusCommitted} }
func Replayed() Outcome  { return Outcome{Status: StatusReplayed} }

func Degraded(reason string) Outcome {
	return Outcome{Status: StatusSkippedDegraded, Reason: reason}
}

func (o Outcome) IsDegraded() bool { return o.Status == StatusSkippedDegraded }
