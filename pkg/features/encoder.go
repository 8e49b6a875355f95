package features

import "fmt"

// Encoded identifier feature names.
const (
	FeatAgencyEncoded = "agency_encoded"
	FeatSKUEncoded    = "sku_encoded"
)

// UnknownCode is the reserved sentinel assigned to identifiers unseen at fit
// time when the encoder is built with WithUnknownCode. Dense codes start at
// zero, so -1 can never collide with a learned code.
const UnknownCode = -1

// UnseenEntityError reports an identifier that was not present at fit time,
// from an encoder configured to fail rather than sentinel-encode.
type UnseenEntityError struct {
	Column string
	Value  string
}

func (e *UnseenEntityError) Error() string {
	return fmt.Sprintf("%s %q was not seen at training time", e.Column, e.Value)
}

// Encoder is a bidirectional table between raw identifiers and dense
// zero-based integer codes. Codes are assigned in first-seen order over the
// fit input; because the panel is always sorted, first-seen order is itself
// reproducible across runs. The table is constructed once at fit time and
// never mutated afterwards.
type Encoder struct {
	Column       string         `json:"column"`
	Forward      map[string]int `json:"forward"`
	Inverse      []string       `json:"inverse"`
	AllowUnknown bool           `json:"allow_unknown"`
}

// EncoderOption configures encoder construction.
type EncoderOption func(*Encoder)

// WithUnknownCode makes Encode map unseen identifiers to UnknownCode
// instead of failing. The default policy is to fail: a panel mentioning an
// entity the training run never saw usually indicates an upstream data
// problem, and silently degraded predictions are worse than a diagnostic.
func WithUnknownCode() EncoderOption {
	return func(e *Encoder) { e.AllowUnknown = true }
}

// FitEncoder learns the code table for one identifier column from the given
// values, in first-seen order.
func FitEncoder(column string, values []string, opts ...EncoderOption) *Encoder {
	e := &Encoder{
		Column:  column,
		Forward: make(map[string]int),
	}
	for _, o := range opts {
		o(e)
	}
	for _, v := range values {
		if _, ok := e.Forward[v]; ok {
			continue
		}
		e.Forward[v] = len(e.Inverse)
		e.Inverse = append(e.Inverse, v)
	}
	return e
}

// Encode maps an identifier to its learned code. Unseen identifiers produce
// an UnseenEntityError, or UnknownCode when the encoder allows unknowns.
func (e *Encoder) Encode(value string) (int, error) {
	if code, ok := e.Forward[value]; ok {
		return code, nil
	}
	if e.AllowUnknown {
		return UnknownCode, nil
	}
	return 0, &UnseenEntityError{Column: e.Column, Value: value}
}

// Decode maps a code back to its raw identifier. Used after prediction to
// restore human-readable output keys.
func (e *Encoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.Inverse) {
		return "", fmt.Errorf("%s code %d out of range [0, %d)", e.Column, code, len(e.Inverse))
	}
	return e.Inverse[code], nil
}

// Len returns the number of identifiers learned at fit time.
func (e *Encoder) Len() int { return len(e.Inverse) }

// Encoders bundles the per-column entity encoders.
type Encoders struct {
	Agency *Encoder `json:"agency"`
	SKU    *Encoder `json:"sku"`
}

func encodedColumns() []string {
	return []string{FeatAgencyEncoded, FeatSKUEncoded}
}
