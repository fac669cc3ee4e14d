package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jarruego/academyhub-sub000/internal/csvdata"
	"github.com/jarruego/academyhub-sub000/internal/normalize"
	"github.com/jarruego/academyhub-sub000/internal/store"
)

// userFields is the identity extracted from a row, normalized once.
type userFields struct {
	dni      string
	nss      string
	moodleID int64
	name     string
	surname1 string
	surname2 string
	email    string
	phone    string
}

func extractUserFields(row csvdata.Row) userFields {
	f := userFields{
		dni:      normalize.ID(row[csvdata.ColDNI]),
		nss:      normalize.ID(row[csvdata.ColNSS]),
		name:     strings.TrimSpace(row[csvdata.ColName]),
		surname1: strings.TrimSpace(row[csvdata.ColSurname1]),
		surname2: strings.TrimSpace(row[csvdata.ColSurname2]),
		email:    strings.TrimSpace(row[csvdata.ColEmail]),
		phone:    strings.TrimSpace(row[csvdata.ColPhone]),
	}
	f.moodleID, _ = normalize.NumericID(row[csvdata.ColMoodleIDUser])
	return f
}

// hasIdentity reports whether the row carries any user identity at all.
// Rows without one are not user rows: in non-user phases they pass through
// without user resolution instead of being skipped.
func (f userFields) hasIdentity() bool {
	return f.dni != "" || f.nss != "" || f.moodleID > 0 ||
		f.name != "" || f.surname1 != ""
}

// creatable applies the creation gate: a new user needs at least one solid
// key. A valid DNI/NIE, a plausible NSS, an external id, a syntactically
// valid email, or a name/surname with letters all qualify; anything less
// would manufacture an empty identity.
func (f userFields) creatable() bool {
	return normalize.ValidDNI(f.dni) ||
		normalize.PlausibleNSS(f.nss) ||
		f.moodleID > 0 ||
		normalize.ValidEmail(f.email) ||
		normalize.HasLetters(f.name+f.surname1+f.surname2)
}

// lookupUser walks the identity dimensions in priority order (NSS, DNI,
// external id, normalized full name, then a last-resort case-insensitive
// exact name scan), checking the run-local index before the store-backed one
// at every step. First match wins.
func (cx *ImportContext) lookupUser(f userFields) (*store.User, string) {
	if f.nss != "" {
		if u := cx.seenUsers.byNSS[f.nss]; u != nil {
			return u, "nss"
		}
		if u := cx.users.byNSS[f.nss]; u != nil {
			return u, "nss"
		}
	}

	if f.dni != "" {
		if u := cx.seenUsers.byDNI[f.dni]; u != nil {
			return u, "dni"
		}
		if u := cx.users.byDNI[f.dni]; u != nil {
			return u, "dni"
		}
	}

	if f.moodleID > 0 {
		if u := cx.seenUsers.byMoodleID[f.moodleID]; u != nil {
			return u, "moodle_id"
		}
		if u := cx.users.byMoodleID[f.moodleID]; u != nil {
			return u, "moodle_id"
		}
	}

	if key := normalize.FullName(f.name, f.surname1, f.surname2); key != "" {
		if u := cx.seenUsers.byFullName[key]; u != nil {
			return u, "full_name"
		}
		if u := cx.users.byFullName[key]; u != nil {
			return u, "full_name"
		}

		// Last resort: exact scan folding case but keeping accents, which
		// catches records whose stored name differs only in casing.
		raw := strings.Join(strings.Fields(f.name+" "+f.surname1+" "+f.surname2), " ")
		for _, u := range cx.seenUsers.all {
			if strings.EqualFold(raw, joinedName(u)) {
				return u, "name_scan"
			}
		}
		for _, u := range cx.users.all {
			if strings.EqualFold(raw, joinedName(u)) {
				return u, "name_scan"
			}
		}
	}

	return nil, ""
}

func joinedName(u *store.User) string {
	return strings.Join(strings.Fields(u.Name+" "+u.Surname1+" "+u.Surname2), " ")
}

// resolveUser finds the user a row refers to. Creation is attempted only
// when allowCreate is set (the users phase); in every other phase an
// unmatched row is skipped with user_not_found.
func (s *Service) resolveUser(ctx context.Context, cx *ImportContext, row csvdata.Row, allowCreate bool) (*store.User, string, error) {
	f := extractUserFields(row)

	if u, matchedBy := cx.lookupUser(f); u != nil {
		cx.markUserSeen(u)
		if allowCreate {
			if err := s.widenUser(ctx, u, f); err != nil {
				return nil, "", err
			}
		}
		return u, matchedBy, nil
	}

	if !allowCreate {
		return nil, "", skip(ReasonUserNotFound)
	}

	if !f.creatable() {
		return nil, "", skip(ReasonInsufficientUserData)
	}

	created, err := s.stores.CreateUser(ctx, store.User{
		Name:     f.name,
		Surname1: f.surname1,
		Surname2: f.surname2,
		DNI:      f.dni,
		NSS:      f.nss,
		MoodleID: f.moodleID,
		Email:    f.email,
		Phone:    f.phone,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	u := &created
	cx.markUserSeen(u)
	return u, "created", nil
}

// widenUser fills fields the stored record is missing from the row. Fields
// are only ever widened, never overwritten or cleared.
func (s *Service) widenUser(ctx context.Context, u *store.User, f userFields) error {
	changed := false

	if u.DNI == "" && f.dni != "" {
		u.DNI = f.dni
		changed = true
	}
	if u.NSS == "" && f.nss != "" {
		u.NSS = f.nss
		changed = true
	}
	if u.MoodleID == 0 && f.moodleID > 0 {
		u.MoodleID = f.moodleID
		changed = true
	}
	if u.Email == "" && f.email != "" {
		u.Email = f.email
		changed = true
	}
	if u.Phone == "" && f.phone != "" {
		u.Phone = f.phone
		changed = true
	}
	if u.Surname2 == "" && f.surname2 != "" {
		u.Surname2 = f.surname2
		changed = true
	}

	if !changed {
		return nil
	}
	if err := s.stores.UpdateUser(ctx, *u); err != nil {
		return fmt.Errorf("widen user %d: %w", u.ID, err)
	}
	return nil
}
