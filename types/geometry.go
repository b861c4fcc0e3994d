package types

// Sense is the orientation of a surface relative to a volume it bounds
type Sense int8

const (
	Forward Sense = 1  // volume is on the side the face normals point away from
	Reverse Sense = -1 // volume is on the side the face normals point into
)

func (s Sense) String() string {
	switch s {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	}
	return "unknown"
}

// Flip returns the opposite sense
func (s Sense) Flip() Sense { return -s }

// Category is the value of the category tag on a geometry entity set
type Category string

const (
	CategoryGroup   Category = "Group"
	CategoryVolume  Category = "Volume"
	CategorySurface Category = "Surface"
)

// Geometry dimension tag values
const (
	DimSurface = 2
	DimVolume  = 3
)

// Tag names written into the geometry sink
const (
	TagID                 = "id"
	TagCategory           = "category"
	TagName               = "name"
	TagGeomDimension      = "geometry_dimension"
	TagMaterial           = "material"
	TagFacetingTolerance  = "faceting_tolerance"
	TagGeometryResolution = "geometry_resolution_absolute"
	TagLengthScale        = "length_scale"
	TagBinLower           = "bin_lower"
	TagBinUpper           = "bin_upper"
)
