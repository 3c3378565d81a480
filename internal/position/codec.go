// Package position validates, normalizes and serializes annotation anchors.
package position

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"reader-annotations/internal/domain"
	apperrors "reader-annotations/pkg/errors"
)

const (
	// MaxRects bounds how many rectangles one fixed anchor may carry.
	MaxRects = 256
	// MaxRangeLength bounds the size of a flow range reference.
	MaxRangeLength = 4096

	// identityPrecision is the number of decimals kept when deriving identity.
	identityPrecision = 4
)

// wireAnchor is the JSON shape of both variants. Pointers distinguish a
// missing field from a zero one so cross-variant fields can be rejected.
type wireAnchor struct {
	Source       domain.AnchorSource `json:"source"`
	Page         *int                `json:"page,omitempty"`
	Rects        []domain.Rect       `json:"rects,omitempty"`
	BoundingRect *domain.Rect        `json:"bounding_rect,omitempty"`
	CFIRange     *string             `json:"cfi_range,omitempty"`
}

// Decode parses a wire anchor and returns it normalized.
func Decode(raw []byte) (domain.Anchor, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, apperrors.NewInvalidAnchorError("position is required")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var w wireAnchor
	if err := dec.Decode(&w); err != nil {
		return nil, apperrors.NewInvalidAnchorError("malformed position", err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, apperrors.NewInvalidAnchorError("malformed position", "unexpected data after position")
	}

	switch w.Source {
	case domain.SourceFixed:
		if w.CFIRange != nil {
			return nil, apperrors.NewInvalidAnchorError("pdf position must not carry cfi_range")
		}
		if w.Page == nil {
			return nil, apperrors.NewInvalidAnchorError("pdf position requires page")
		}
		// bounding_rect is accepted on input but always recomputed.
		return Normalize(&domain.FixedAnchor{Page: *w.Page, Rects: w.Rects})
	case domain.SourceFlow:
		if w.Page != nil || w.Rects != nil || w.BoundingRect != nil {
			return nil, apperrors.NewInvalidAnchorError("epub position must not carry page coordinates")
		}
		if w.CFIRange == nil {
			return nil, apperrors.NewInvalidAnchorError("epub position requires cfi_range")
		}
		return Normalize(&domain.FlowAnchor{CFIRange: *w.CFIRange})
	case "":
		return nil, apperrors.NewInvalidAnchorError("position source is required")
	default:
		return nil, apperrors.NewInvalidAnchorError("unknown position source", string(w.Source))
	}
}

// Normalize validates a and returns a copy with derived fields recomputed.
func Normalize(a domain.Anchor) (domain.Anchor, error) {
	switch v := a.(type) {
	case *domain.FixedAnchor:
		fixed, err := normalizeFixed(v)
		if err != nil {
			return nil, err
		}
		return fixed, nil
	case *domain.FlowAnchor:
		flow, err := normalizeFlow(v)
		if err != nil {
			return nil, err
		}
		return flow, nil
	case nil:
		return nil, apperrors.NewInvalidAnchorError("position is required")
	default:
		return nil, apperrors.NewInvalidAnchorError(fmt.Sprintf("unsupported anchor %T", a))
	}
}

func normalizeFixed(a *domain.FixedAnchor) (*domain.FixedAnchor, error) {
	if a == nil {
		return nil, apperrors.NewInvalidAnchorError("position is required")
	}
	if a.Page < 1 {
		return nil, apperrors.NewInvalidAnchorError("page must be a positive integer")
	}
	if len(a.Rects) == 0 {
		return nil, apperrors.NewInvalidAnchorError("rects must not be empty")
	}
	if len(a.Rects) > MaxRects {
		return nil, apperrors.NewInvalidAnchorError(fmt.Sprintf("at most %d rects are allowed", MaxRects))
	}

	rects := make([]domain.Rect, len(a.Rects))
	for i, r := range a.Rects {
		if err := checkRect(r); err != nil {
			return nil, apperrors.NewInvalidAnchorError(fmt.Sprintf("rects[%d]: %s", i, err))
		}
		rects[i] = r
	}

	return &domain.FixedAnchor{
		Page:         a.Page,
		Rects:        rects,
		BoundingRect: bounding(rects),
	}, nil
}

func checkRect(r domain.Rect) error {
	fields := []struct {
		name string
		v    float64
	}{{"x", r.X}, {"y", r.Y}, {"width", r.Width}, {"height", r.Height}}

	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s is not a number", f.name)
		}
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("%s must be within [0,1]", f.name)
		}
	}
	if r.Page < 0 {
		return fmt.Errorf("page must be positive")
	}
	return nil
}

// bounding returns the smallest rectangle enclosing rects.
func bounding(rects []domain.Rect) domain.Rect {
	minX, minY := rects[0].X, rects[0].Y
	maxX, maxY := rects[0].X+rects[0].Width, rects[0].Y+rects[0].Height
	for _, r := range rects[1:] {
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.X+r.Width)
		maxY = math.Max(maxY, r.Y+r.Height)
	}
	return domain.Rect{
		X:      minX,
		Y:      minY,
		Width:  math.Min(maxX, 1) - minX,
		Height: math.Min(maxY, 1) - minY,
	}
}

func normalizeFlow(a *domain.FlowAnchor) (*domain.FlowAnchor, error) {
	if a == nil {
		return nil, apperrors.NewInvalidAnchorError("position is required")
	}
	ref := strings.TrimSpace(a.CFIRange)
	if ref == "" {
		return nil, apperrors.NewInvalidAnchorError("cfi_range must not be empty")
	}
	if len(ref) > MaxRangeLength {
		return nil, apperrors.NewInvalidAnchorError(fmt.Sprintf("cfi_range exceeds %d bytes", MaxRangeLength))
	}
	return &domain.FlowAnchor{CFIRange: ref}, nil
}

// Identity derives the uniqueness key of a normalized anchor. Fixed anchors
// key on page plus the bounding rectangle rounded to four decimals, so
// re-selecting the same region with float jitter maps to the same key.
func Identity(a domain.Anchor) string {
	switch v := a.(type) {
	case *domain.FlowAnchor:
		return string(domain.SourceFlow) + ":" + v.CFIRange
	case *domain.FixedAnchor:
		b := v.BoundingRect
		return fmt.Sprintf("%s:%d:%s,%s,%s,%s", domain.SourceFixed, v.Page,
			round(b.X), round(b.Y), round(b.Width), round(b.Height))
	}
	return ""
}

func round(v float64) string {
	scale := math.Pow10(identityPrecision)
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', identityPrecision, 64)
}

// Encode renders a into its wire shape.
func Encode(a domain.Anchor) ([]byte, error) {
	switch v := a.(type) {
	case *domain.FixedAnchor:
		page := v.Page
		bound := v.BoundingRect
		return json.Marshal(wireAnchor{
			Source:       domain.SourceFixed,
			Page:         &page,
			Rects:        v.Rects,
			BoundingRect: &bound,
		})
	case *domain.FlowAnchor:
		ref := v.CFIRange
		return json.Marshal(wireAnchor{Source: domain.SourceFlow, CFIRange: &ref})
	}
	return nil, apperrors.NewInvalidAnchorError(fmt.Sprintf("unsupported anchor %T", a))
}

// ValidateForFormat rejects anchors whose variant does not match the book layout.
func ValidateForFormat(a domain.Anchor, format domain.BookFormat) error {
	if a == nil {
		return apperrors.NewInvalidAnchorError("position is required")
	}
	if want := format.AnchorSource(); a.Source() != want {
		return apperrors.NewInvalidAnchorError(
			fmt.Sprintf("%s books take %s positions", format, want),
			"got "+string(a.Source()))
	}
	return nil
}

// Resolved is a decoded anchor together with its identity and canonical encoding.
type Resolved struct {
	Anchor   domain.Anchor
	Key      string
	Position json.RawMessage
}

// Resolve decodes raw, checks it against the book format, and returns the
// values the store persists.
func Resolve(raw []byte, format domain.BookFormat) (*Resolved, error) {
	a, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateForFormat(a, format); err != nil {
		return nil, err
	}
	enc, err := Encode(a)
	if err != nil {
		return nil, err
	}
	return &Resolved{Anchor: a, Key: Identity(a), Position: enc}, nil
}
