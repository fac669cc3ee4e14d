package importer

import (
	"context"
	"testing"
	"time"

	"github.com/jarruego/academyhub-sub000/internal/store"
)

func TestAssociatePhaseSetsSingleMain(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	f.users = []store.User{{ID: 1, Name: "Ana", Surname1: "Ruiz", DNI: "12345678Z"}}
	f.companies = []store.Company{{ID: 2, Name: "Acme SL", CIF: "B12345678"}}
	s := newTestService(f)

	csv := "DNI;CIF;Centro;Fecha Alta\n" +
		"12345678Z;B12345678;Sede Central;01/06/2024\n" +
		"12345678Z;B12345678;Planta Norte;01/01/2023\n"

	report, err := s.Run(ctx, PhaseAssociate, []byte(csv))
	if err != nil {
		t.Fatal(err)
	}
	if !report.Success {
		t.Fatalf("run failed: %+v", report.Errors)
	}
	if len(f.associations) != 2 {
		t.Fatalf("want 2 associations, got %d", len(f.associations))
	}
	if f.mainCount(1) != 1 {
		t.Fatalf("want exactly one main association, got %d", f.mainCount(1))
	}

	// The strictly latest start date carries the flag.
	for _, a := range f.associations {
		wantMain := a.StartDate != nil && a.StartDate.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		if a.IsMain != wantMain {
			t.Errorf("association center=%d main=%v, want %v", a.CenterID, a.IsMain, wantMain)
		}
	}
}

func TestAssociatePhaseUnknownUserSkips(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	s := newTestService(f)

	csv := "DNI;CIF;Centro\n12345678Z;B12345678;Sede Central\n"
	report, err := s.Run(ctx, PhaseAssociate, []byte(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Results) != 1 {
		t.Fatalf("want 1 result, got %d", len(report.Results))
	}
	out := report.Results[0]
	if out.Status != StatusSkipped || out.Reason != ReasonUserNotFound {
		t.Errorf("outcome = %s/%s, want skipped/%s", out.Status, out.Reason, ReasonUserNotFound)
	}
	if len(f.associations) != 0 {
		t.Fatalf("association persisted for unknown user")
	}
}

func TestAssociatePhaseWithoutCIFUsesGlobalCenterMatch(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	f.users = []store.User{{ID: 1, Name: "Ana", Surname1: "Ruiz", DNI: "12345678Z"}}
	f.centers = []store.Center{{ID: 9, Name: "Sede Central", CompanyID: 4}}
	s := newTestService(f)

	csv := "DNI;CIF;Centro\n12345678Z;;Sede Central\n"
	report, err := s.Run(ctx, PhaseAssociate, []byte(csv))
	if err != nil {
		t.Fatal(err)
	}
	if !report.Success {
		t.Fatalf("run failed: %+v", report.Errors)
	}
	out := report.Results[0]
	if out.Status != StatusOK {
		t.Fatalf("outcome = %s/%s, want ok", out.Status, out.Reason)
	}
	if out.CenterID != 9 {
		t.Errorf("center = %d, want global match 9", out.CenterID)
	}
	if out.CompanyID != 0 {
		t.Errorf("company = %d, want none", out.CompanyID)
	}
}

func TestUniqueLatest(t *testing.T) {
	a1 := store.Association{ID: 1, StartDate: datePtr(2023, 1, 1)}
	a2 := store.Association{ID: 2, StartDate: datePtr(2024, 6, 1)}
	a3 := store.Association{ID: 3, StartDate: datePtr(2024, 6, 1)}
	a4 := store.Association{ID: 4}

	if w := uniqueLatest([]store.Association{a1, a2}); w == nil || w.ID != 2 {
		t.Errorf("want winner 2, got %+v", w)
	}
	if w := uniqueLatest([]store.Association{a1, a2, a3}); w != nil {
		t.Errorf("tie must yield no winner, got %+v", w)
	}
	if w := uniqueLatest([]store.Association{a4}); w != nil {
		t.Errorf("dateless set must yield no winner, got %+v", w)
	}
	if w := uniqueLatest(nil); w != nil {
		t.Errorf("empty set must yield no winner, got %+v", w)
	}
}

func TestRepairMainCenters(t *testing.T) {
	ctx := context.Background()
	f := newFakeStores()
	f.associations = []store.Association{
		// User 1: no main at all, latest date must win.
		{ID: 1, UserID: 1, CenterID: 10, StartDate: datePtr(2023, 1, 1)},
		{ID: 2, UserID: 1, CenterID: 11, StartDate: datePtr(2024, 1, 1)},
		// User 2: two mains, must collapse to one.
		{ID: 3, UserID: 2, CenterID: 10, IsMain: true},
		{ID: 4, UserID: 2, CenterID: 11, IsMain: true, StartDate: datePtr(2022, 5, 5)},
		// User 3: already consistent, untouched.
		{ID: 5, UserID: 3, CenterID: 10, IsMain: true},
	}
	s := newTestService(f)

	repaired, err := s.RepairMainCenters(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if repaired != 2 {
		t.Errorf("repaired = %d, want 2", repaired)
	}

	for _, userID := range []int64{1, 2, 3} {
		if n := f.mainCount(userID); n != 1 {
			t.Errorf("user %d has %d main associations, want 1", userID, n)
		}
	}
	for _, a := range f.associations {
		if a.ID == 2 && !a.IsMain {
			t.Error("user 1: latest start date did not receive the main flag")
		}
		if a.ID == 4 && !a.IsMain {
			t.Error("user 2: dated association did not receive the main flag")
		}
	}
}
