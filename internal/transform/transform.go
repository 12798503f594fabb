// Package transform maps raw API records onto normalized rows. Every function
// is pure: the same record always produces the same row.
package transform

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/slack-archv/pkg/slack"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

var validate = validator.New()

func malformed(kind, id, reason string) error {
	if id == "" {
		id = "<unknown>"
	}
	return appErrors.Wrap(
		fmt.Errorf("%s %s: %s", kind, id, reason),
		appErrors.ErrMalformedRecord.Code,
		appErrors.ErrMalformedRecord.Status,
		"malformed "+kind,
	)
}

func check(kind, id string, v any) error {
	if err := validate.Struct(v); err != nil {
		return malformed(kind, id, err.Error())
	}
	return nil
}

// toJSON encodes v; map keys are sorted so output is canonical.
func toJSON(v any) (types.JSONText, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(out), nil
}

func toNullJSON(v any, present bool) (types.NullJSONText, error) {
	if !present {
		return types.NullJSONText{}, nil
	}
	text, err := toJSON(v)
	if err != nil {
		return types.NullJSONText{}, err
	}
	return types.NullJSONText{JSONText: text, Valid: true}, nil
}

// without returns a copy of r lacking the given keys.
func without(r slack.Record, keys ...string) slack.Record {
	out := r.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StripDomain turns an absolute workspace URL into a host-relative one.
// URLs on other hosts are returned unchanged.
func StripDomain(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	host := strings.ToLower(u.Hostname())
	if host != "slack.com" && !strings.HasSuffix(host, ".slack.com") {
		return raw
	}
	rel := u.EscapedPath()
	if u.RawQuery != "" {
		rel += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		rel += "#" + u.EscapedFragment()
	}
	return rel
}
