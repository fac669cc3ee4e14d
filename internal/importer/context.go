package importer

import (
	"context"
	"fmt"

	"github.com/jarruego/academyhub-sub000/internal/normalize"
	"github.com/jarruego/academyhub-sub000/internal/store"
)

// userIndex holds one map per identity dimension. The same *store.User is
// registered under every key it carries, so a row matching by NSS and a
// later row matching by name land on the same record.
type userIndex struct {
	byNSS      map[string]*store.User
	byDNI      map[string]*store.User
	byMoodleID map[int64]*store.User
	byFullName map[string]*store.User
	all        []*store.User
}

func newUserIndex() *userIndex {
	return &userIndex{
		byNSS:      make(map[string]*store.User),
		byDNI:      make(map[string]*store.User),
		byMoodleID: make(map[int64]*store.User),
		byFullName: make(map[string]*store.User),
	}
}

func (ix *userIndex) add(u *store.User) {
	if u.NSS != "" {
		ix.byNSS[u.NSS] = u
	}
	if u.DNI != "" {
		ix.byDNI[u.DNI] = u
	}
	if u.MoodleID > 0 {
		ix.byMoodleID[u.MoodleID] = u
	}
	if key := normalize.FullName(u.Name, u.Surname1, u.Surname2); key != "" {
		ix.byFullName[key] = u
	}
	ix.all = append(ix.all, u)
}

// ImportContext carries the per-run identity caches. It is built once per
// run and threaded through every resolver call; nothing here outlives the
// run (no process-wide state).
//
// Each entity family has a store-backed index warmed once, plus a
// "seen in this run" index populated as rows resolve. The seen index is
// always consulted first so two CSV rows referring to the same
// not-yet-persisted entity resolve consistently.
type ImportContext struct {
	users       *userIndex
	seenUsers   *userIndex
	seenUserIDs map[int64]bool

	companiesByCIF     map[string]*store.Company
	seenCompaniesByCIF map[string]*store.Company

	centersByImportKey map[string]*store.Center
	centersByCompany   map[int64][]*store.Center
	allCenters         []*store.Center
	// seenCenters is keyed by "companyID|normalizedName".
	seenCenters map[string]*store.Center
	// pendingCenters reserves a center key while its create is in flight.
	// With sequential rows this guards against duplicate creation when a
	// create fails half-way and the same key comes around again.
	pendingCenters map[string]bool
	// employerSeen maps "companyID|employerNumber" to the first normalized
	// center name observed for that pair in this run. A second, different
	// name makes employer-number matching ambiguous for the pair.
	employerSeen map[string]string

	coursesByMoodleID     map[int64]*store.Course
	coursesByName         map[string]*store.Course
	seenCoursesByMoodleID map[int64]*store.Course
	seenCoursesByName     map[string]*store.Course

	groupsByMoodleID     map[int64]*store.Group
	groupsByName         map[string]*store.Group
	seenGroupsByMoodleID map[int64]*store.Group
	seenGroupsByName     map[string]*store.Group
}

// NewImportContext builds the per-run caches by loading all existing
// entities from the store.
func NewImportContext(ctx context.Context, stores Stores) (*ImportContext, error) {
	cx := &ImportContext{
		users:       newUserIndex(),
		seenUsers:   newUserIndex(),
		seenUserIDs: make(map[int64]bool),

		companiesByCIF:     make(map[string]*store.Company),
		seenCompaniesByCIF: make(map[string]*store.Company),

		centersByImportKey: make(map[string]*store.Center),
		centersByCompany:   make(map[int64][]*store.Center),
		seenCenters:        make(map[string]*store.Center),
		pendingCenters:     make(map[string]bool),
		employerSeen:       make(map[string]string),

		coursesByMoodleID:     make(map[int64]*store.Course),
		coursesByName:         make(map[string]*store.Course),
		seenCoursesByMoodleID: make(map[int64]*store.Course),
		seenCoursesByName:     make(map[string]*store.Course),

		groupsByMoodleID:     make(map[int64]*store.Group),
		groupsByName:         make(map[string]*store.Group),
		seenGroupsByMoodleID: make(map[int64]*store.Group),
		seenGroupsByName:     make(map[string]*store.Group),
	}

	users, err := stores.FindAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("warm user cache: %w", err)
	}
	for i := range users {
		cx.users.add(&users[i])
	}

	companies, err := stores.FindAllCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("warm company cache: %w", err)
	}
	for i := range companies {
		c := &companies[i]
		if c.CIF != "" {
			cx.companiesByCIF[c.CIF] = c
		}
	}

	centers, err := stores.FindAllCenters(ctx)
	if err != nil {
		return nil, fmt.Errorf("warm center cache: %w", err)
	}
	for i := range centers {
		cx.addCenter(&centers[i])
	}

	courses, err := stores.FindAllCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("warm course cache: %w", err)
	}
	for i := range courses {
		c := &courses[i]
		if c.MoodleID > 0 {
			cx.coursesByMoodleID[c.MoodleID] = c
		}
		if key := normalize.Name(c.Name); key != "" {
			cx.coursesByName[key] = c
		}
	}

	groups, err := stores.FindAllGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("warm group cache: %w", err)
	}
	for i := range groups {
		g := &groups[i]
		if g.MoodleID > 0 {
			cx.groupsByMoodleID[g.MoodleID] = g
		}
		if key := groupNameKey(g.CourseID, normalize.Name(g.Name)); key != "" {
			cx.groupsByName[key] = g
		}
	}

	return cx, nil
}

// addCenter indexes a center under its import key and company.
func (cx *ImportContext) addCenter(c *store.Center) {
	if c.ImportKey != "" {
		cx.centersByImportKey[c.ImportKey] = c
	}
	cx.centersByCompany[c.CompanyID] = append(cx.centersByCompany[c.CompanyID], c)
	cx.allCenters = append(cx.allCenters, c)
}

// markUserSeen registers a matched or created user in the run-local index so
// subsequent rows in the same run resolve to it immediately.
func (cx *ImportContext) markUserSeen(u *store.User) {
	if cx.seenUserIDs[u.ID] {
		return
	}
	cx.seenUserIDs[u.ID] = true
	cx.seenUsers.add(u)
}

func centerKey(companyID int64, normName string) string {
	return fmt.Sprintf("%d|%s", companyID, normName)
}

func employerKey(companyID int64, employerNumber string) string {
	return fmt.Sprintf("%d|%s", companyID, employerNumber)
}

// groupNameKey scopes a group's name key to its parent course when known.
func groupNameKey(courseID int64, normName string) string {
	if normName == "" {
		return ""
	}
	return fmt.Sprintf("%d|%s", courseID, normName)
}
