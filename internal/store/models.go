package store

import "time"

// User is a trainee/employee record. DNI and NSS are stored normalized
// (uppercase alphanumeric); MoodleID is the external LMS id, 0 when absent.
type User struct {
	ID       int64
	Name     string
	Surname1 string
	Surname2 string
	DNI      string
	NSS      string
	MoodleID int64
	Email    string
	Phone    string
}

// Company is keyed by its tax identifier. A company is never persisted
// without a non-empty CIF.
type Company struct {
	ID   int64
	Name string
	CIF  string
}

// Center belongs to exactly one company. ImportKey is the synthetic
// "companyID_normalizedName" written on creation so later runs re-match the
// center exactly. EmployerNumber is a weak signal: the source data reuses it
// across centers.
type Center struct {
	ID             int64
	Name           string
	EmployerNumber string
	CompanyID      int64
	ImportKey      string
}

// Course is keyed by MoodleID when the exports carry one; name matching is a
// fallback only. Optional fields are widened on re-encounter, never erased.
type Course struct {
	ID          int64
	Name        string
	MoodleID    int64
	Description string
	Hours       float64
	Modality    string
	StartDate   *time.Time
	EndDate     *time.Time
}

// Group is a course edition, optionally scoped to its parent course.
type Group struct {
	ID        int64
	Name      string
	MoodleID  int64
	CourseID  int64
	StartDate *time.Time
	EndDate   *time.Time
}

// Association links a user to a center. Exactly one association per user
// must carry IsMain; the engine restores that invariant after the associate
// phase.
type Association struct {
	ID        int64
	UserID    int64
	CenterID  int64
	StartDate *time.Time
	EndDate   *time.Time
	IsMain    bool
}
