package importer

import (
	"context"
	"testing"

	"github.com/jarruego/academyhub-sub000/internal/csvdata"
	"github.com/jarruego/academyhub-sub000/internal/store"
)

func TestResolveCenterCreateThenImportKey(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	s := newTestService(f)
	cx, err := NewImportContext(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	company := &store.Company{ID: 1, Name: "Acme SL", CIF: "B12345678"}

	row := csvdata.Row{csvdata.ColCenterName: "Sede Central"}
	c, matchedBy, err := s.resolveCenter(ctx, cx, row, company)
	if err != nil {
		t.Fatal(err)
	}
	if matchedBy != "created" {
		t.Fatalf("matchedBy = %q, want created", matchedBy)
	}
	if c.ImportKey != "1_sede central" {
		t.Errorf("import key = %q, want %q", c.ImportKey, "1_sede central")
	}

	// Same name again in the run resolves through the import key index.
	c2, matchedBy, err := s.resolveCenter(ctx, cx, row, company)
	if err != nil {
		t.Fatal(err)
	}
	if c2.ID != c.ID || matchedBy != "import_key" {
		t.Errorf("second resolve got %d via %q, want %d via import_key", c2.ID, matchedBy, c.ID)
	}
	if len(f.centers) != 1 {
		t.Fatalf("duplicate center created, got %d", len(f.centers))
	}

	// A fresh run re-matches via the persisted key too.
	cx2, err := NewImportContext(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	c3, matchedBy, err := s.resolveCenter(ctx, cx2, row, company)
	if err != nil {
		t.Fatal(err)
	}
	if c3.ID != c.ID || matchedBy != "import_key" {
		t.Errorf("next-run resolve got %d via %q, want %d via import_key", c3.ID, matchedBy, c.ID)
	}
}

func TestResolveCenterImportKeyStoreFallback(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	s := newTestService(f)
	cx, err := NewImportContext(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	company := &store.Company{ID: 1}

	// Center persisted after the run warmed its caches, as another run
	// writing concurrently would. The store lookup still finds it by key.
	f.centers = append(f.centers, store.Center{
		ID: 7, Name: "Sede Nueva", CompanyID: 1, ImportKey: "1_sede nueva",
	})

	c, matchedBy, err := s.resolveCenter(ctx, cx, csvdata.Row{csvdata.ColCenterName: "Sede Nueva"}, company)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != 7 || matchedBy != "import_key" {
		t.Fatalf("got center %d via %q, want 7 via import_key", c.ID, matchedBy)
	}
	if len(f.centers) != 1 {
		t.Fatalf("duplicate center created, got %d", len(f.centers))
	}
}

func TestResolveCenterNameMatchBackfillsImportKey(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	f.centers = []store.Center{
		{ID: 7, Name: "SEDE  Central", CompanyID: 1},
	}
	s := newTestService(f)
	cx, err := NewImportContext(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	company := &store.Company{ID: 1}

	c, matchedBy, err := s.resolveCenter(ctx, cx, csvdata.Row{csvdata.ColCenterName: "Sede Central"}, company)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != 7 || matchedBy != "name" {
		t.Fatalf("got center %d via %q, want 7 via name", c.ID, matchedBy)
	}
	if f.centers[0].ImportKey != "1_sede central" {
		t.Errorf("import key not backfilled, got %q", f.centers[0].ImportKey)
	}
}

func TestResolveCenterContainment(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	f.centers = []store.Center{
		{ID: 7, Name: "Acme Formación Madrid", CompanyID: 1},
	}
	s := newTestService(f)
	cx, err := NewImportContext(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	company := &store.Company{ID: 1}

	// "formacion madrid" covers 16 of the stored 21 characters: above ratio.
	c, matchedBy, err := s.resolveCenter(ctx, cx, csvdata.Row{csvdata.ColCenterName: "Formación Madrid"}, company)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != 7 || matchedBy != "contains" {
		t.Errorf("got center %d via %q, want 7 via contains", c.ID, matchedBy)
	}

	// "madrid" is contained but far below the ratio: a new center instead.
	c2, matchedBy, err := s.resolveCenter(ctx, cx, csvdata.Row{csvdata.ColCenterName: "Madrid"}, company)
	if err != nil {
		t.Fatal(err)
	}
	if matchedBy != "created" {
		t.Errorf("short name matched via %q, want created", matchedBy)
	}
	if c2.ID == c.ID {
		t.Error("short name collapsed into the wrong center")
	}
}

func TestResolveCenterEmployerNumber(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	f.centers = []store.Center{
		{ID: 7, Name: "Planta Norte", EmployerNumber: "28123", CompanyID: 1},
	}
	s := newTestService(f)
	cx, err := NewImportContext(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	company := &store.Company{ID: 1}

	// Two rows share the employer number but name different centers. The
	// stored center already has a name of its own, so neither row may be
	// pulled onto it: both create.
	for _, name := range []string{"Oficina Legazpi", "Taller Sur"} {
		c, matchedBy, err := s.resolveCenter(ctx, cx, csvdata.Row{
			csvdata.ColCenterName:     name,
			csvdata.ColEmployerNumber: "28123",
		}, company)
		if err != nil {
			t.Fatal(err)
		}
		if matchedBy != "created" {
			t.Errorf("%q resolved via %q, want created", name, matchedBy)
		}
		if c.ID == 7 {
			t.Errorf("%q matched the differently named center", name)
		}
	}
	if len(f.centers) != 3 {
		t.Fatalf("want 3 stored centers, got %d", len(f.centers))
	}
}

func TestResolveCenterEmployerNumberNameless(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	f.centers = []store.Center{
		{ID: 7, Name: "Planta Norte", EmployerNumber: "28123", CompanyID: 1},
	}
	s := newTestService(f)
	cx, err := NewImportContext(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	company := &store.Company{ID: 1}

	// A nameless row cannot contradict the stored name, so the unique
	// employer number still matches instead of the UNKNOWN sentinel.
	c, matchedBy, err := s.resolveCenter(ctx, cx, csvdata.Row{
		csvdata.ColEmployerNumber: "28123",
	}, company)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != 7 || matchedBy != "employer_number" {
		t.Fatalf("got center %d via %q, want 7 via employer_number", c.ID, matchedBy)
	}
	if len(f.centers) != 1 {
		t.Fatalf("nameless row created a center, got %d stored", len(f.centers))
	}
}

func TestResolveCenterUnknownSentinel(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	s := newTestService(f)
	cx, err := NewImportContext(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	company := &store.Company{ID: 3}

	c, matchedBy, err := s.resolveCenter(ctx, cx, csvdata.Row{}, company)
	if err != nil {
		t.Fatal(err)
	}
	if matchedBy != "unknown_center" {
		t.Fatalf("matchedBy = %q, want unknown_center", matchedBy)
	}
	if c.Name != "UNKNOWN" {
		t.Errorf("sentinel name = %q, want UNKNOWN", c.Name)
	}

	// The sentinel is reused, one per company.
	c2, _, err := s.resolveCenter(ctx, cx, csvdata.Row{}, company)
	if err != nil {
		t.Fatal(err)
	}
	if c2.ID != c.ID {
		t.Error("second nameless row created a second sentinel")
	}
	if len(f.centers) != 1 {
		t.Fatalf("want 1 stored center, got %d", len(f.centers))
	}
}

func TestResolveCenterGlobalFallback(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	f.centers = []store.Center{
		{ID: 7, Name: "Sede Central", CompanyID: 1},
	}
	s := newTestService(f)
	cx, err := NewImportContext(ctx, f)
	if err != nil {
		t.Fatal(err)
	}

	// No company resolved: exact global name match, never a create.
	c, matchedBy, err := s.resolveCenter(ctx, cx, csvdata.Row{csvdata.ColCenterName: "sede central"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != 7 || matchedBy != "global_name" {
		t.Errorf("got center %d via %q, want 7 via global_name", c.ID, matchedBy)
	}

	_, _, err = s.resolveCenter(ctx, cx, csvdata.Row{csvdata.ColCenterName: "inexistente"}, nil)
	assertSkip(t, err, ReasonCenterNotFound)
	if len(f.centers) != 1 {
		t.Fatalf("global fallback created a center, got %d", len(f.centers))
	}
}
