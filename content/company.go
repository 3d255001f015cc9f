package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eringen/dossier/store"
)

const companyTable = "company_profile"

// GetCompany returns the firm record.
func (s *Service) GetCompany(ctx context.Context) (Company, error) {
	rows, err := s.db.Select(ctx, store.From(companyTable).Order("id", false).Range(0, 1))
	if err != nil {
		return Company{}, wrap(opCompany, err)
	}
	row, err := store.Single(rows)
	if err != nil {
		return Company{}, wrap(opCompany, err)
	}
	return decodeCompany(row)
}

func decodeCompany(row store.Row) (Company, error) {
	var c Company
	if err := decodeRow(row, &c); err != nil {
		return Company{}, fmt.Errorf("decoding company: %w", err)
	}
	if c.FoundingPartners == nil {
		c.FoundingPartners = []Partner{}
	}
	if c.Values == nil {
		c.Values = []string{}
	}
	if c.AreasOfPractice == nil {
		c.AreasOfPractice = []PracticeArea{}
	}
	return c, nil
}

// UpdateCompany merges the set fields of in into the firm record. Partners
// and practice areas are stored as JSON documents. Established is free text
// because firm histories often give only a year.
func (s *Service) UpdateCompany(ctx context.Context, in CompanyInput) (Company, error) {
	cur, err := s.GetCompany(ctx)
	if err != nil {
		return Company{}, err
	}
	values := store.Row{"updated_at": s.now()}
	set := func(k string, v *string) {
		if v != nil {
			values[k] = strings.TrimSpace(*v)
		}
	}
	set("firm_name", in.FirmName)
	set("firm_description", in.FirmDescription)
	set("established", in.Established)
	set("vision", in.Vision)
	set("mission", in.Mission)
	if in.Values != nil {
		values["firm_values"] = Dedupe(in.Values)
	}
	if in.FoundingPartners != nil {
		if err := setDocument(values, "founding_partners", in.FoundingPartners); err != nil {
			return Company{}, err
		}
	}
	if in.AreasOfPractice != nil {
		if err := setDocument(values, "areas_of_practice", in.AreasOfPractice); err != nil {
			return Company{}, err
		}
	}

	rows, err := s.db.Update(ctx, companyTable, values, store.Eq("id", cur.ID))
	if err != nil {
		return Company{}, wrap(opCompany, err)
	}
	row, err := store.Single(rows)
	if err != nil {
		return Company{}, wrap(opCompany, err)
	}
	return decodeCompany(row)
}

func setDocument(values store.Row, column string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", column, err)
	}
	values[column] = string(doc)
	return nil
}
