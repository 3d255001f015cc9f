package content

import (
	"context"
	"strings"

	"github.com/eringen/dossier/store"
)

const profileTable = "profile"

// GetProfile returns the biography record.
func (s *Service) GetProfile(ctx context.Context) (Profile, error) {
	rows, err := s.db.Select(ctx, store.From(profileTable).Order("id", false).Range(0, 1))
	if err != nil {
		return Profile{}, wrap(opProfile, err)
	}
	row, err := store.Single(rows)
	if err != nil {
		return Profile{}, wrap(opProfile, err)
	}
	return decodeProfile(row)
}

func decodeProfile(row store.Row) (Profile, error) {
	var p Profile
	if err := decodeRow(row, &p); err != nil {
		return Profile{}, err
	}
	if p.Institutions == nil {
		p.Institutions = []string{}
	}
	return p, nil
}

// UpdateProfile merges the set fields of in into the profile.
func (s *Service) UpdateProfile(ctx context.Context, in ProfileInput) (Profile, error) {
	cur, err := s.GetProfile(ctx)
	if err != nil {
		return Profile{}, err
	}
	values := store.Row{"updated_at": s.now()}
	set := func(k string, v *string) {
		if v != nil {
			values[k] = strings.TrimSpace(*v)
		}
	}
	set("full_name", in.FullName)
	set("current_position", in.CurrentPosition)
	set("previous_position", in.PreviousPosition)
	set("law_firm", in.LawFirm)
	set("career_span", in.CareerSpan)
	set("specialization", in.Specialization)
	set("undergraduate", in.Undergraduate)
	set("graduate", in.Graduate)
	set("professional", in.Professional)
	set("featured_image_url", in.FeaturedImageURL)
	set("featured_image_alt", in.FeaturedImageAlt)
	set("featured_image_caption", in.FeaturedImageCaption)
	if in.Institutions != nil {
		values["institutions"] = Dedupe(in.Institutions)
	}

	rows, err := s.db.Update(ctx, profileTable, values, store.Eq("id", cur.ID))
	if err != nil {
		return Profile{}, wrap(opProfile, err)
	}
	row, err := store.Single(rows)
	if err != nil {
		return Profile{}, wrap(opProfile, err)
	}
	return decodeProfile(row)
}
