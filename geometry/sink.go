package geometry

import "github.com/notargets/meshgeom/types"

// Handle identifies an entity set in a geometry sink
type Handle uint64

// Facet is a triangle given by its three vertex coordinates, ordered so the right hand normal points away from the
// surface's forward volume
type Facet [3][3]float64

// Sink is a geometry database that stores entity sets, tags and the parent/child and sense relations between
// surfaces and volumes. Writes go into a transaction opened by Begin and become visible together on Commit.
type Sink interface {
	Begin() error
	Root() Handle
	CreateSet(category types.Category) (Handle, error)
	SetIntTag(h Handle, name string, value int) error
	SetDoubleTag(h Handle, name string, value float64) error
	SetStringTag(h Handle, name string, value string) error
	AddChild(parent, child Handle) error
	AddToGroup(group, member Handle) error
	SetSense(surface, volume Handle, sense types.Sense) error
	AddFacets(surface Handle, facets []Facet) error
	Commit() error
	Rollback() error
}
