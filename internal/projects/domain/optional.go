package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is an optional numeric request field. A missing key, null and ""
// all mean "not provided"; numeric strings are accepted.
type Number struct {
	Value *float64
}

func NumberOf(f float64) Number { return Number{Value: &f} }

func (n *Number) UnmarshalJSON(b []byte) error {
	n.Value = nil
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%q is not a number", s)
		}
		n.Value = &f
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%s is not a number", raw)
	}
	n.Value = &f
	return nil
}

// Text is an optional string request field that remembers an explicit
// null, which clears the stored value on update.
type Text struct {
	Set   bool
	Null  bool
	Value string
}

func TextOf(s string) Text { return Text{Set: true, Value: s} }

// NullText is an explicit JSON null.
func NullText() Text { return Text{Set: true, Null: true} }

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text{Set: true}
	if strings.TrimSpace(string(b)) == "null" {
		t.Null = true
		return nil
	}
	return json.Unmarshal(b, &t.Value)
}

// provided reports the trimmed value of a non-null, non-blank field.
func (t Text) provided() (string, bool) {
	if !t.Set || t.Null {
		return "", false
	}
	v := strings.TrimSpace(t.Value)
	return v, v != ""
}
