// Package importer implements the CSV ingestion and entity-reconciliation
// engine: it decodes legacy payroll/training exports, resolves each row to
// existing users, companies, centers, courses and groups (or creates them),
// and persists the results phase by phase with per-row failure isolation.
//
// Execution is deliberately single-threaded and sequential over rows: the
// run-local "seen" caches and the pending-creation guard rely on no two rows
// being processed concurrently.
package importer

import (
	"context"
	"time"

	"github.com/jarruego/academyhub-sub000/internal/config"
	"github.com/jarruego/academyhub-sub000/internal/store"
)

// UserStore is the subset of the persistence layer the engine needs for users.
type UserStore interface {
	FindAllUsers(ctx context.Context) ([]store.User, error)
	CreateUser(ctx context.Context, u store.User) (store.User, error)
	UpdateUser(ctx context.Context, u store.User) error
}

// CompanyStore covers company lookup and creation.
type CompanyStore interface {
	FindAllCompanies(ctx context.Context) ([]store.Company, error)
	FindCompanyByCIF(ctx context.Context, cif string) (*store.Company, error)
	CreateCompany(ctx context.Context, c store.Company) (store.Company, error)
}

// CenterStore covers center lookup, creation and import-key backfill.
type CenterStore interface {
	FindAllCenters(ctx context.Context) ([]store.Center, error)
	FindCenterByImportKey(ctx context.Context, key string) (*store.Center, error)
	CreateCenter(ctx context.Context, c store.Center) (store.Center, error)
	UpdateCenter(ctx context.Context, c store.Center) error
}

// CourseStore covers course lookup, creation and field widening.
type CourseStore interface {
	FindAllCourses(ctx context.Context) ([]store.Course, error)
	FindCourseByMoodleID(ctx context.Context, moodleID int64) (*store.Course, error)
	FindCourseByName(ctx context.Context, name string) (*store.Course, error)
	CreateCourse(ctx context.Context, c store.Course) (store.Course, error)
	UpdateCourse(ctx context.Context, c store.Course) error
}

// GroupStore covers group lookup, creation and field widening.
type GroupStore interface {
	FindAllGroups(ctx context.Context) ([]store.Group, error)
	FindGroupByMoodleID(ctx context.Context, moodleID int64) (*store.Group, error)
	FindGroupByName(ctx context.Context, name string) (*store.Group, error)
	CreateGroup(ctx context.Context, g store.Group) (store.Group, error)
	UpdateGroup(ctx context.Context, g store.Group) error
}

// AssociationStore covers user-center associations and the main flag.
type AssociationStore interface {
	FindAllAssociations(ctx context.Context) ([]store.Association, error)
	FindAssociationsByUser(ctx context.Context, userID int64) ([]store.Association, error)
	UpsertAssociation(ctx context.Context, a store.Association) (store.Association, error)
	SetMainAssociation(ctx context.Context, userID, assocID int64) error
}

// Stores is the transactional unit of work the engine runs against. InTx
// yields a Stores bound to the transaction; each discrete write (an
// association upsert, a main-flag repair) gets its own transaction so one
// row's failure cannot poison another's.
type Stores interface {
	UserStore
	CompanyStore
	CenterStore
	CourseStore
	GroupStore
	AssociationStore
	InTx(ctx context.Context, fn func(Stores) error) error
}

// pgStores adapts *store.Store to the Stores interface.
type pgStores struct {
	*store.Store
}

func (p pgStores) InTx(ctx context.Context, fn func(Stores) error) error {
	return p.Store.InTx(ctx, func(tx *store.Store) error {
		return fn(pgStores{tx})
	})
}

// WrapStore exposes the PostgreSQL store as the engine's Stores interface.
func WrapStore(s *store.Store) Stores {
	return pgStores{s}
}

// Service drives import runs. It holds no per-run state: every Run builds a
// fresh ImportContext, so concurrent runs against disjoint data do not share
// caches (the engine still assumes it is the only writer for the entities a
// run touches).
type Service struct {
	stores Stores
	cfg    config.ImportConfig

	// sleep is swapped out in tests to avoid real delays on create retries.
	sleep func(time.Duration)
}

// New creates an import Service over the given stores.
func New(stores Stores, cfg config.ImportConfig) *Service {
	return &Service{
		stores: stores,
		cfg:    cfg,
		sleep:  time.Sleep,
	}
}
