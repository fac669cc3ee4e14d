package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jarruego/academyhub-sub000/internal/csvdata"
	"github.com/jarruego/academyhub-sub000/internal/normalize"
	"github.com/jarruego/academyhub-sub000/internal/store"
)

// unknownCenterName is the sentinel center reused for rows that carry no
// center name. One per company, re-matched across runs via its import key.
const unknownCenterName = "UNKNOWN"

// importKey builds the synthetic key persisted on centers so later runs
// re-match them exactly.
func importKey(companyID int64, normName string) string {
	return fmt.Sprintf("%d_%s", companyID, normName)
}

// resolveCenter finds or creates the center a row refers to, scoped to the
// resolved company. With no company at all it falls back to a global
// same-name match and never creates.
//
// Resolution ladder, first hit wins: persisted import key, run-local cache,
// exact normalized name in the company, containment (both directions, gated
// by the configured length ratio), unique unambiguous employer number, the
// UNKNOWN sentinel for nameless rows, creation.
func (s *Service) resolveCenter(ctx context.Context, cx *ImportContext, row csvdata.Row, company *store.Company) (*store.Center, string, error) {
	rawName := strings.TrimSpace(row[csvdata.ColCenterName])
	normName := normalize.Name(rawName)
	empNum := normalize.ID(row[csvdata.ColEmployerNumber])

	if company == nil {
		return matchCenterGlobal(cx, normName)
	}

	// Record the (company, employer number) -> name observation whatever
	// path resolution takes, so a later row with a different name for the
	// same pair is flagged as ambiguous.
	if empNum != "" && normName != "" {
		key := employerKey(company.ID, empNum)
		defer func() {
			if _, ok := cx.employerSeen[key]; !ok {
				cx.employerSeen[key] = normName
			}
		}()
	}

	if normName != "" {
		// Import key match is authoritative once persisted. The store lookup
		// backs up the warmed index for centers persisted after warm-up.
		key := importKey(company.ID, normName)
		if c := cx.centersByImportKey[key]; c != nil {
			return c, "import_key", nil
		}
		if c, err := s.stores.FindCenterByImportKey(ctx, key); err != nil {
			return nil, "", fmt.Errorf("find center by import key: %w", err)
		} else if c != nil {
			cx.addCenter(c)
			return c, "import_key", nil
		}

		if c := cx.seenCenters[centerKey(company.ID, normName)]; c != nil {
			return c, "seen", nil
		}

		if c := cx.matchCenterByName(company.ID, normName); c != nil {
			// Backfill the import key so the next run matches exactly.
			if c.ImportKey == "" {
				c.ImportKey = importKey(company.ID, normName)
				if err := s.stores.UpdateCenter(ctx, *c); err != nil {
					return nil, "", fmt.Errorf("backfill center import key: %w", err)
				}
				cx.centersByImportKey[c.ImportKey] = c
			}
			cx.seenCenters[centerKey(company.ID, normName)] = c
			return c, "name", nil
		}

		if c := cx.matchCenterByContainment(company.ID, normName, s.cfg.CenterMatchRatio); c != nil {
			cx.seenCenters[centerKey(company.ID, normName)] = c
			return c, "contains", nil
		}
	}

	if empNum != "" {
		c, ambiguous := cx.matchCenterByEmployerNumber(company.ID, empNum, normName)
		if c != nil {
			if normName != "" {
				cx.seenCenters[centerKey(company.ID, normName)] = c
			}
			return c, "employer_number", nil
		}
		if ambiguous {
			slog.Warn("employer number ambiguous, not matching",
				"company_id", company.ID,
				"employer_number", empNum,
				"center_name", rawName,
			)
		}
	}

	if normName == "" {
		c, err := s.unknownCenter(ctx, cx, company)
		if err != nil {
			return nil, "", err
		}
		return c, "unknown_center", nil
	}

	c, err := s.createCenter(ctx, cx, company.ID, rawName, normName, empNum)
	if err != nil {
		return nil, "", err
	}
	return c, "created", nil
}

// matchCenterGlobal is the last-resort fallback when no company resolved:
// exact normalized-name match across all companies, then substring in both
// directions. It never creates.
func matchCenterGlobal(cx *ImportContext, normName string) (*store.Center, string, error) {
	if normName == "" {
		return nil, "", skip(ReasonCenterNotFound)
	}

	for _, c := range cx.allCenters {
		if normalize.Name(c.Name) == normName {
			return c, "global_name", nil
		}
	}
	for _, c := range cx.allCenters {
		cn := normalize.Name(c.Name)
		if cn == "" {
			continue
		}
		if strings.Contains(cn, normName) || strings.Contains(normName, cn) {
			return c, "global_contains", nil
		}
	}

	return nil, "", skip(ReasonCenterNotFound)
}

func (cx *ImportContext) matchCenterByName(companyID int64, normName string) *store.Center {
	for _, c := range cx.centersByCompany[companyID] {
		if normalize.Name(c.Name) == normName {
			return c
		}
	}
	return nil
}

// matchCenterByContainment accepts a containment match only when the shorter
// name covers at least ratio of the longer one, so a short abbreviation
// cannot swallow an unrelated longer name.
func (cx *ImportContext) matchCenterByContainment(companyID int64, normName string, ratio float64) *store.Center {
	for _, c := range cx.centersByCompany[companyID] {
		cn := normalize.Name(c.Name)
		if cn == "" {
			continue
		}

		shorter, longer := normName, cn
		if len(shorter) > len(longer) {
			shorter, longer = longer, shorter
		}
		if float64(len(shorter)) < ratio*float64(len(longer)) {
			continue
		}
		if strings.Contains(longer, shorter) {
			return c
		}
	}
	return nil
}

// matchCenterByEmployerNumber matches on the employer number only when it is
// unique among the company's centers and the row's name does not contradict
// either the matched center's own name or a name observed for the
// (company, employer number) pair earlier in this run. Employer numbers are
// reused across centers in the source data, so this is a weak signal.
func (cx *ImportContext) matchCenterByEmployerNumber(companyID int64, empNum, normName string) (c *store.Center, ambiguous bool) {
	if prev, ok := cx.employerSeen[employerKey(companyID, empNum)]; ok && prev != normName {
		return nil, true
	}

	var match *store.Center
	for _, cand := range cx.centersByCompany[companyID] {
		if cand.EmployerNumber != empNum {
			continue
		}
		if match != nil {
			return nil, true
		}
		match = cand
	}
	if match != nil && normName != "" && normalize.Name(match.Name) != normName {
		// The center carries a name of its own that the row disagrees with.
		return nil, true
	}
	return match, false
}

// unknownCenter returns the company's sentinel center, creating it on first
// need.
func (s *Service) unknownCenter(ctx context.Context, cx *ImportContext, company *store.Company) (*store.Center, error) {
	normName := normalize.Name(unknownCenterName)

	if c := cx.centersByImportKey[importKey(company.ID, normName)]; c != nil {
		return c, nil
	}
	if c := cx.seenCenters[centerKey(company.ID, normName)]; c != nil {
		return c, nil
	}
	if c := cx.matchCenterByName(company.ID, normName); c != nil {
		cx.seenCenters[centerKey(company.ID, normName)] = c
		return c, nil
	}

	return s.createCenter(ctx, cx, company.ID, unknownCenterName, normName, "")
}

// createCenter persists a new center, guarding against duplicate creation
// within the run via the pending-key reservation. The reservation is
// resolved (into the seen cache) or removed once the create completes or
// fails.
func (s *Service) createCenter(ctx context.Context, cx *ImportContext, companyID int64, rawName, normName, empNum string) (*store.Center, error) {
	key := centerKey(companyID, normName)

	if cx.pendingCenters[key] {
		// A create for this key is already in flight; with sequential rows
		// this means an earlier attempt failed mid-way. Re-consult the run
		// cache before giving up.
		if c := cx.seenCenters[key]; c != nil {
			return c, nil
		}
		return nil, skip(ReasonCenterNotFound)
	}

	cx.pendingCenters[key] = true
	created, err := s.stores.CreateCenter(ctx, store.Center{
		Name:           rawName,
		EmployerNumber: empNum,
		CompanyID:      companyID,
		ImportKey:      importKey(companyID, normName),
	})
	delete(cx.pendingCenters, key)
	if err != nil {
		return nil, fmt.Errorf("create center: %w", err)
	}

	c := &created
	cx.addCenter(c)
	cx.seenCenters[key] = c
	return c, nil
}
