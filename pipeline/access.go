package pipeline

// MeshAccess is the read only view of the host mesh and its results. Elements are addressed by index 0..N-1,
// ElementID gives the stable ID used in messages and in the Index.
type MeshAccess interface {
	ElementCount() int
	ElementID(k int) int
	ElementBlock(k int) int
	ElementVolume(k int) float64

	NumFaces(k int) int
	Neighbor(k, f int) (nbr, nbrFace int)
	FaceVertices(k, f int) []int
	Vertex(v int) [3]float64
	FaceArea(face []int) float64

	FieldValue(name string, k int) (float64, error)

	Blocks() []int
	BlockName(block int) string
}
