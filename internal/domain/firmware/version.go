package firmware

import "fmt"

// Version identifies a firmware build: a base version and a revision joined by a separator.
type Version struct {
	// Base is the upstream short build version, e.g. "1.2.3".
	Base string
	// Revision is the downstream revision, e.g. "45".
	Revision string
	// Separator joins Base and Revision.
	Separator string
}

// String renders the identifier, e.g. "1.2.3r45".
func (v Version) String() string {
	return v.Base + v.Separator + v.Revision
}

// Validate checks that both tokens are present and the rendered value is meaningful.
func (v Version) Validate() error {
	if v.Base == "" {
		return fmt.Errorf("%w: base version token is empty", ErrVersionNotFound)
	}

	if v.Revision == "" {
		return fmt.Errorf("%w: revision token is empty", ErrVersionNotFound)
	}

	if s := v.String(); s == "" || s == v.Separator {
		return fmt.Errorf("%w: %q", ErrVersionNotFound, s)
	}

	return nil
}
