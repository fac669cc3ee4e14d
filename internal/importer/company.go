package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jarruego/academyhub-sub000/internal/csvdata"
	"github.com/jarruego/academyhub-sub000/internal/normalize"
	"github.com/jarruego/academyhub-sub000/internal/store"
)

// resolveCompany finds or creates the company a row refers to. A company is
// never matched or created without a non-empty tax id: rows with an empty
// CIF are skipped, full stop.
func (s *Service) resolveCompany(ctx context.Context, cx *ImportContext, row csvdata.Row) (*store.Company, string, error) {
	cif := normalize.ID(row[csvdata.ColCIF])
	if cif == "" {
		return nil, "", skip(ReasonCompanyNotFound)
	}

	if c := cx.seenCompaniesByCIF[cif]; c != nil {
		return c, "cif", nil
	}
	if c := cx.companiesByCIF[cif]; c != nil {
		cx.seenCompaniesByCIF[cif] = c
		return c, "cif", nil
	}

	if c, err := s.stores.FindCompanyByCIF(ctx, cif); err != nil {
		return nil, "", fmt.Errorf("find company by cif: %w", err)
	} else if c != nil {
		cx.seenCompaniesByCIF[cif] = c
		return c, "cif", nil
	}

	name := strings.TrimSpace(row[csvdata.ColCompanyName])
	if _, err := s.stores.CreateCompany(ctx, store.Company{Name: name, CIF: cif}); err != nil {
		return nil, "", fmt.Errorf("create company: %w", err)
	}

	// Re-fetch by tax id rather than trusting the creation echo: if a
	// concurrent writer created the same company first, this converges both
	// on one record.
	c, err := s.stores.FindCompanyByCIF(ctx, cif)
	if err != nil {
		return nil, "", fmt.Errorf("re-fetch company by cif: %w", err)
	}
	if c == nil {
		return nil, "", fmt.Errorf("company %s vanished after create", cif)
	}

	cx.seenCompaniesByCIF[cif] = c
	return c, "created", nil
}
