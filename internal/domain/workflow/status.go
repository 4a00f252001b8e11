package workflow

import "fmt"

// Status is a case's pipeline stage. Only the edges in transitions are
// legal; nothing in the system sets an arbitrary status string.
type Status string

const (
	StatusNewStudyReceived       Status = "new_study_received"
	StatusPendingAssignment      Status = "pending_assignment"
	StatusAssignedToDoctor       Status = "assigned_to_doctor"
	StatusDoctorOpenedReport     Status = "doctor_opened_report"
	StatusReportInProgress       Status = "report_in_progress"
	StatusReportDrafted          Status = "report_drafted"
	StatusReportFinalized        Status = "report_finalized"
	StatusVerificationInProgress Status = "verification_in_progress"
	StatusReportVerified         Status = "report_verified"
	StatusReportRejected         Status = "report_rejected"
	StatusFinalReportDownloaded  Status = "final_report_downloaded"
)

// transitions is the single source of truth for the reporting pipeline.
// report_rejected is the one backward edge: it re-queues the case for
// the assigned radiologist.
var transitions = map[Status][]Status{
	StatusNewStudyReceived:       {StatusPendingAssignment},
	StatusPendingAssignment:      {StatusAssignedToDoctor},
	StatusAssignedToDoctor:       {StatusDoctorOpenedReport},
	StatusDoctorOpenedReport:     {StatusReportInProgress},
	StatusReportInProgress:       {StatusReportDrafted},
	StatusReportDrafted:          {StatusReportFinalized},
	StatusReportFinalized:        {StatusVerificationInProgress},
	StatusVerificationInProgress: {StatusReportVerified, StatusReportRejected},
	StatusReportVerified:         {StatusFinalReportDownloaded},
	StatusReportRejected:         {StatusAssignedToDoctor},
	StatusFinalReportDownloaded:  {},
}

// ValidStatus reports whether s is one of the pipeline statuses.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the edge from -> to exists.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports a requested edge that does not exist in
// the pipeline. It is rejected, never coerced to a nearby valid state.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid workflow transition from %q to %q", e.From, e.To)
}
