package content

import (
	"context"
	"testing"
)

func TestCompanyRoundTrip(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	c, err := s.GetCompany(ctx)
	if err != nil {
		t.Fatalf("GetCompany: %v", err)
	}
	if c.ID != 1 || c.FoundingPartners == nil || c.Values == nil || c.AreasOfPractice == nil {
		t.Fatalf("seeded company = %+v", c)
	}

	updated, err := s.UpdateCompany(ctx, CompanyInput{
		FirmName:    Str(" Ogetto, Otachi & Co "),
		Established: Str("2005"),
		Values:      []string{"Integrity", "Excellence", "integrity"},
		FoundingPartners: []Partner{{
			Name:  "Kennedy Ogetto",
			Title: "Founding Partner",
			GovernmentPositions: []Position{{
				Position: "Solicitor General",
				Period:   "2018-2022",
			}},
			InternationalExperience: []string{"UNICTR"},
		}},
		AreasOfPractice: []PracticeArea{{
			Name:         "Pro Bono Services",
			Description:  "Free representation",
			TargetGroups: []string{"Students", "Refugees"},
		}},
	})
	if err != nil {
		t.Fatalf("UpdateCompany: %v", err)
	}
	if updated.FirmName != "Ogetto, Otachi & Co" || updated.Established != "2005" {
		t.Errorf("scalar fields = %+v", updated)
	}
	if len(updated.Values) != 2 {
		t.Errorf("Values = %v", updated.Values)
	}
	if len(updated.FoundingPartners) != 1 || updated.FoundingPartners[0].GovernmentPositions[0].Position != "Solicitor General" {
		t.Errorf("FoundingPartners = %+v", updated.FoundingPartners)
	}
	if len(updated.AreasOfPractice) != 1 || len(updated.AreasOfPractice[0].TargetGroups) != 2 {
		t.Errorf("AreasOfPractice = %+v", updated.AreasOfPractice)
	}

	again, err := s.UpdateCompany(ctx, CompanyInput{Vision: Str("Justice for all")})
	if err != nil {
		t.Fatalf("UpdateCompany: %v", err)
	}
	if again.Vision != "Justice for all" || len(again.FoundingPartners) != 1 || again.FirmName != updated.FirmName {
		t.Errorf("partial update lost fields: %+v", again)
	}

	cleared, err := s.UpdateCompany(ctx, CompanyInput{AreasOfPractice: []PracticeArea{}})
	if err != nil {
		t.Fatalf("UpdateCompany: %v", err)
	}
	if len(cleared.AreasOfPractice) != 0 || len(cleared.FoundingPartners) != 1 {
		t.Errorf("clearing practice areas = %+v", cleared)
	}
}
