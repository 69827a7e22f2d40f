package content

import (
	"net/url"
	"slices"
	"strings"
)

// Image is a preset picture an event may use instead of an uploaded one.
type Image struct {
	Path  string `json:"path" yaml:"path"`
	Label string `json:"label" yaml:"label"`
}

// DefaultImage is shown for events without an image.
const DefaultImage = "/images/krentzman-quad.png"

// DefaultCatalog lists the images bundled with the front end.
func DefaultCatalog() []Image {
	return []Image{
		{Path: DefaultImage, Label: "Krentzman Quad"},
		{Path: "/images/curry-student-center.png", Label: "Curry Student Center"},
		{Path: "/images/centennial-common.png", Label: "Centennial Common"},
		{Path: "/images/snell-library.png", Label: "Snell Library"},
	}
}

// Catalog validates image references against the preset list.
type Catalog struct {
	images []Image
}

// NewCatalog returns a Catalog over images. An empty list uses DefaultCatalog.
func NewCatalog(images []Image) *Catalog {
	if len(images) == 0 {
		images = DefaultCatalog()
	}
	return &Catalog{images: slices.Clone(images)}
}

// Images returns a copy of the preset list.
func (c *Catalog) Images() []Image {
	if c == nil {
		return DefaultCatalog()
	}
	return slices.Clone(c.images)
}

// Allows reports whether ref may be stored as an event image: empty, a preset
// path, or an absolute https URL.
func (c *Catalog) Allows(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return true
	}
	if slices.ContainsFunc(c.Images(), func(img Image) bool { return img.Path == ref }) {
		return true
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Host != ""
}
