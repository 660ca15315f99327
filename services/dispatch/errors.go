package dispatch

import (
	"errors"
	"fmt"
)

// ErrNoCandidatesLeft signals that the requested batch window is past the
// end of the ranked candidate list. It is not a transient failure: there is
// nobody left to offer the job to.
var ErrNoCandidatesLeft = errors.New("no candidates left for batch")

// RankingFailedError wraps a data-source failure during partner ranking.
// Callers recover by treating the booking as having zero candidates for the
// current cycle; the next sweep ranks again.
type RankingFailedError struct {
	BookingID string
	Err       error
}

func (e *RankingFailedError) Error() string {
	return fmt.Sprintf("ranking failed for booking %s: %v", e.BookingID, e.Err)
}

func (e *RankingFailedError) Unwrap() error { return e.Err }
