package importer

import (
	"context"
	"errors"
	"time"

	"github.com/jarruego/academyhub-sub000/internal/config"
	"github.com/jarruego/academyhub-sub000/internal/store"
)

// fakeStores is an in-memory Stores implementation. InTx runs the callback
// against the same state; transactional behavior itself is not under test
// here.
type fakeStores struct {
	users        []store.User
	companies    []store.Company
	centers      []store.Center
	courses      []store.Course
	groups       []store.Group
	associations []store.Association

	nextID int64

	// Failure injection: each counter fails that many calls before
	// succeeding again.
	createCourseFailures int
	createGroupFailures  int
	createUserFailures   int
}

var errInjected = errors.New("injected store failure")

func newFakeStores() *fakeStores {
	return &fakeStores{nextID: 1000}
}

func (f *fakeStores) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStores) InTx(ctx context.Context, fn func(Stores) error) error {
	return fn(f)
}

// --- users ---

func (f *fakeStores) FindAllUsers(ctx context.Context) ([]store.User, error) {
	return append([]store.User(nil), f.users...), nil
}

func (f *fakeStores) CreateUser(ctx context.Context, u store.User) (store.User, error) {
	if f.createUserFailures > 0 {
		f.createUserFailures--
		return store.User{}, errInjected
	}
	u.ID = f.id()
	f.users = append(f.users, u)
	return u, nil
}

func (f *fakeStores) UpdateUser(ctx context.Context, u store.User) error {
	for i := range f.users {
		if f.users[i].ID == u.ID {
			f.users[i] = u
			return nil
		}
	}
	return errors.New("user not found")
}

// --- companies ---

func (f *fakeStores) FindAllCompanies(ctx context.Context) ([]store.Company, error) {
	return append([]store.Company(nil), f.companies...), nil
}

func (f *fakeStores) FindCompanyByCIF(ctx context.Context, cif string) (*store.Company, error) {
	for i := range f.companies {
		if f.companies[i].CIF == cif {
			c := f.companies[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStores) CreateCompany(ctx context.Context, c store.Company) (store.Company, error) {
	c.ID = f.id()
	f.companies = append(f.companies, c)
	return c, nil
}

// --- centers ---

func (f *fakeStores) FindAllCenters(ctx context.Context) ([]store.Center, error) {
	return append([]store.Center(nil), f.centers...), nil
}

func (f *fakeStores) FindCenterByImportKey(ctx context.Context, key string) (*store.Center, error) {
	for i := range f.centers {
		if f.centers[i].ImportKey == key {
			c := f.centers[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStores) CreateCenter(ctx context.Context, c store.Center) (store.Center, error) {
	c.ID = f.id()
	f.centers = append(f.centers, c)
	return c, nil
}

func (f *fakeStores) UpdateCenter(ctx context.Context, c store.Center) error {
	for i := range f.centers {
		if f.centers[i].ID == c.ID {
			f.centers[i] = c
			return nil
		}
	}
	return errors.New("center not found")
}

// --- courses ---

func (f *fakeStores) FindAllCourses(ctx context.Context) ([]store.Course, error) {
	return append([]store.Course(nil), f.courses...), nil
}

func (f *fakeStores) FindCourseByMoodleID(ctx context.Context, moodleID int64) (*store.Course, error) {
	for i := range f.courses {
		if f.courses[i].MoodleID == moodleID {
			c := f.courses[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStores) FindCourseByName(ctx context.Context, name string) (*store.Course, error) {
	for i := range f.courses {
		if f.courses[i].Name == name {
			c := f.courses[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStores) CreateCourse(ctx context.Context, c store.Course) (store.Course, error) {
	if f.createCourseFailures > 0 {
		f.createCourseFailures--
		return store.Course{}, errInjected
	}
	c.ID = f.id()
	f.courses = append(f.courses, c)
	return c, nil
}

func (f *fakeStores) UpdateCourse(ctx context.Context, c store.Course) error {
	for i := range f.courses {
		if f.courses[i].ID == c.ID {
			f.courses[i] = c
			return nil
		}
	}
	return errors.New("course not found")
}

// --- groups ---

func (f *fakeStores) FindAllGroups(ctx context.Context) ([]store.Group, error) {
	return append([]store.Group(nil), f.groups...), nil
}

func (f *fakeStores) FindGroupByMoodleID(ctx context.Context, moodleID int64) (*store.Group, error) {
	for i := range f.groups {
		if f.groups[i].MoodleID == moodleID {
			g := f.groups[i]
			return &g, nil
		}
	}
	return nil, nil
}

func (f *fakeStores) FindGroupByName(ctx context.Context, name string) (*store.Group, error) {
	for i := range f.groups {
		if f.groups[i].Name == name {
			g := f.groups[i]
			return &g, nil
		}
	}
	return nil, nil
}

func (f *fakeStores) CreateGroup(ctx context.Context, g store.Group) (store.Group, error) {
	if f.createGroupFailures > 0 {
		f.createGroupFailures--
		return store.Group{}, errInjected
	}
	g.ID = f.id()
	f.groups = append(f.groups, g)
	return g, nil
}

func (f *fakeStores) UpdateGroup(ctx context.Context, g store.Group) error {
	for i := range f.groups {
		if f.groups[i].ID == g.ID {
			f.groups[i] = g
			return nil
		}
	}
	return errors.New("group not found")
}

// --- associations ---

func (f *fakeStores) FindAllAssociations(ctx context.Context) ([]store.Association, error) {
	return append([]store.Association(nil), f.associations...), nil
}

func (f *fakeStores) FindAssociationsByUser(ctx context.Context, userID int64) ([]store.Association, error) {
	var out []store.Association
	for _, a := range f.associations {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStores) UpsertAssociation(ctx context.Context, a store.Association) (store.Association, error) {
	for i := range f.associations {
		ex := &f.associations[i]
		if ex.UserID == a.UserID && ex.CenterID == a.CenterID {
			if ex.StartDate == nil {
				ex.StartDate = a.StartDate
			}
			if ex.EndDate == nil {
				ex.EndDate = a.EndDate
			}
			return *ex, nil
		}
	}
	a.ID = f.id()
	f.associations = append(f.associations, a)
	return a, nil
}

func (f *fakeStores) SetMainAssociation(ctx context.Context, userID, assocID int64) error {
	for i := range f.associations {
		if f.associations[i].UserID == userID {
			f.associations[i].IsMain = f.associations[i].ID == assocID
		}
	}
	return nil
}

// mainCount returns how many of the user's associations carry the main flag.
func (f *fakeStores) mainCount(userID int64) int {
	n := 0
	for _, a := range f.associations {
		if a.UserID == userID && a.IsMain {
			n++
		}
	}
	return n
}

func newTestService(f *fakeStores) *Service {
	s := New(f, config.ImportConfig{
		CenterMatchRatio: 0.7,
		CreateRetryDelay: time.Millisecond,
	})
	s.sleep = func(time.Duration) {}
	return s
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
