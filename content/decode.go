package content

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/eringen/dossier/store"
)

var timeType = reflect.TypeOf(time.Time{})

// timeLayouts are tried in order when a timestamp arrives as text.
var timeLayouts = []string{
	store.TimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func stringToTimeHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t != timeType {
		return data, nil
	}
	s := strings.TrimSpace(reflect.ValueOf(data).String())
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", s)
}

// jsonListHook decodes list columns that a driver hands back as JSON text.
func jsonListHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t.Kind() != reflect.Slice {
		return data, nil
	}
	s := strings.TrimSpace(reflect.ValueOf(data).String())
	if s == "" || s == "null" {
		return []any{}, nil
	}
	if !strings.HasPrefix(s, "[") {
		return data, nil
	}
	var out []any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decoding list %q: %w", s, err)
	}
	return out, nil
}

// decodeRow copies a store row into out using the struct's json tags.
func decodeRow(row store.Row, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonListHook,
			stringToTimeHook,
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(row))
}

func decodePost(row store.Row) (Post, error) {
	var p Post
	if err := decodeRow(row, &p); err != nil {
		return Post{}, fmt.Errorf("decoding post: %w", err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Sources == nil {
		p.Sources = []Source{}
	}
	return p, nil
}

func decodePosts(rows []store.Row) ([]Post, error) {
	out := make([]Post, 0, len(rows))
	for _, r := range rows {
		p, err := decodePost(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decodeEntry(row store.Row) (TimelineEntry, error) {
	var e TimelineEntry
	if err := decodeRow(row, &e); err != nil {
		return TimelineEntry{}, fmt.Errorf("decoding timeline entry: %w", err)
	}
	if e.RelatedCases == nil {
		e.RelatedCases = []string{}
	}
	if e.Sources == nil {
		e.Sources = []Source{}
	}
	return e, nil
}

func decodeEntries(rows []store.Row) ([]TimelineEntry, error) {
	out := make([]TimelineEntry, 0, len(rows))
	for _, r := range rows {
		e, err := decodeEntry(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
