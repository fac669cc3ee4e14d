package importer

// Phase selects which entity family an import run processes. Phases are
// mutually exclusive per invocation; callers chain runs (users, companies,
// associate, ...) themselves.
type Phase string

const (
	PhaseUsers     Phase = "users"
	PhaseCompanies Phase = "companies"
	PhaseAssociate Phase = "associate"
	PhaseCourses   Phase = "courses"
	PhaseGroups    Phase = "groups"
)

// ParsePhase validates a raw phase string.
func ParsePhase(s string) (Phase, bool) {
	switch Phase(s) {
	case PhaseUsers, PhaseCompanies, PhaseAssociate, PhaseCourses, PhaseGroups:
		return Phase(s), true
	}
	return "", false
}

// Status is the per-row outcome class.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Skip reasons. A skip means the row carried too little data to match or
// create an entity; processing always continues.
const (
	ReasonInsufficientUserData = "insufficient_user_data"
	ReasonUserNotFound         = "user_not_found"
	ReasonCompanyNotFound      = "company_not_found"
	ReasonCenterNotFound       = "center_not_found"
	ReasonCourseNotFound       = "course_not_found"
	ReasonGroupNotFound        = "group_not_found"
	ReasonAmbiguousCenter      = "ambiguous_center"
)

// RowOutcome records what happened to a single CSV row.
type RowOutcome struct {
	Row       int    `json:"row"`
	Phase     Phase  `json:"phase"`
	Status    Status `json:"status"`
	Reason    string `json:"reason,omitempty"`
	MatchedBy string `json:"matched_by,omitempty"`
	UserID    int64  `json:"id_user,omitempty"`
	CompanyID int64  `json:"id_company,omitempty"`
	CenterID  int64  `json:"id_center,omitempty"`
	CourseID  int64  `json:"id_course,omitempty"`
	GroupID   int64  `json:"id_group,omitempty"`
}

// RowError records an unexpected failure at the row boundary. It never
// aborts the run.
type RowError struct {
	Row     int    `json:"row"`
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
}

// Report is the full outcome of one import run. The caller receives it even
// when most rows failed; an import is never all-or-nothing.
type Report struct {
	ImportID string       `json:"import_id"`
	Success  bool         `json:"success"`
	Results  []RowOutcome `json:"results"`
	Errors   []RowError   `json:"errors"`
}

// skipError signals a recoverable skip with its reason code. Resolvers
// return it instead of logging and swallowing; the orchestrator decides how
// to record it.
type skipError struct {
	reason string
}

func (e *skipError) Error() string { return e.reason }

func skip(reason string) error { return &skipError{reason: reason} }
