// Package journal accumulates classified API outcomes for one run and
// persists them as flat tables once the run is over.
package journal

import "strconv"

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeInfo
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInfo:
		return "info"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Entry is one classified API attempt. Entries are never mutated after they
// are appended.
type Entry struct {
	Email    string
	Action   string
	Details  string
	Status   int
	Response string
	Outcome  Outcome
}

var Columns = []string{"Email", "Action", "Details", "Status", "Response"}

func (e Entry) Record() []string {
	return []string{e.Email, e.Action, e.Details, strconv.Itoa(e.Status), e.Response}
}

// Journal holds the success and error logs of a run. It is owned by the run
// orchestrator and passed explicitly to whoever records outcomes.
type Journal struct {
	successes []Entry
	errors    []Entry
	infos     int
}

func New() *Journal {
	return &Journal{}
}

// Append routes an entry by its outcome: failures go to the error log,
// everything else to the success log.
func (j *Journal) Append(e Entry) {
	switch e.Outcome {
	case OutcomeFailure:
		j.errors = append(j.errors, e)
	case OutcomeInfo:
		j.infos++
		j.successes = append(j.successes, e)
	default:
		j.successes = append(j.successes, e)
	}
}

func (j *Journal) Successes() []Entry {
	return append([]Entry(nil), j.successes...)
}

func (j *Journal) Errors() []Entry {
	return append([]Entry(nil), j.errors...)
}

func (j *Journal) Infos() int {
	return j.infos
}

func (j *Journal) Len() int {
	return len(j.successes) + len(j.errors)
}

func (j *Journal) HasErrors() bool {
	return len(j.errors) > 0
}
