package workflow

import "fmt"

// AcquisitionError wraps failures before any graph exists: the report URL
// could not be located or the report could not be downloaded.
type AcquisitionError struct {
	Company string
	Err     error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire report for %q: %v", e.Company, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// ExtractionError is returned when every chunk of a report failed to
// extract. Individual chunk failures are tolerated and only counted.
type ExtractionError struct {
	Failed int
	Total  int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for all %d of %d chunks", e.Failed, e.Total)
}

// PersistenceError wraps a sink write failure. The in-memory graph is
// still returned to the caller alongside it.
type PersistenceError struct {
	Sink string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist graph to %s: %v", e.Sink, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
