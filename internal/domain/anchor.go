package domain

// AnchorSource is the discriminator carried on the wire as "source".
type AnchorSource string

const (
	SourceFixed AnchorSource = "pdf"
	SourceFlow  AnchorSource = "epub"
)

// Anchor locates an annotation inside a document. The only implementations
// are *FixedAnchor and *FlowAnchor.
type Anchor interface {
	Source() AnchorSource
	anchor()
}

// Rect is a rectangle in page-relative coordinates, each field in [0,1].
// Page scopes the rectangle when a selection spans pages.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Page   int     `json:"page,omitempty"`
}

// FixedAnchor addresses a region of a fixed-layout page.
type FixedAnchor struct {
	Page         int    `json:"page"`
	Rects        []Rect `json:"rects"`
	BoundingRect Rect   `json:"bounding_rect"`
}

func (*FixedAnchor) Source() AnchorSource { return SourceFixed }
func (*FixedAnchor) anchor() {}

// FlowAnchor addresses a span of a reflowable document by an opaque range
// reference (an EPUB CFI range).
type FlowAnchor struct {
	CFIRange string `json:"cfi_range"`
}

func (*FlowAnchor) Source() AnchorSource { return SourceFlow }
func (*FlowAnchor) anchor() {}
