package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vertex returns the coordinates of vertex v
func (m *Mesh) Vertex(v int) [3]float64 {
	var xyz [3]float64
	copy(xyz[:], m.Vertices[v])
	return xyz
}

func (m *Mesh) vec(v int) r3.Vec {
	p := m.Vertices[v]
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

// SignedVolume computes the element volume from its reference face ordering with the divergence theorem, each face
// fanned into triangles. It is negative for an inverted element.
func (m *Mesh) SignedVolume(k int) (vol float64) {
	for _, face := range GetElementFaces(m.ElementTypes[k], m.EtoV[k]) {
		a := m.vec(face[0])
		for i := 1; i+1 < len(face); i++ {
			b, c := m.vec(face[i]), m.vec(face[i+1])
			vol += r3.Dot(a, r3.Cross(b, c))
		}
	}
	return vol / 6
}

// ElementVolume returns the (unsigned) volume of element k
func (m *Mesh) ElementVolume(k int) float64 {
	return math.Abs(m.SignedVolume(k))
}

// Centroid returns the vertex average of element k
func (m *Mesh) Centroid(k int) (c [3]float64) {
	var sum r3.Vec
	for _, v := range m.EtoV[k] {
		sum = r3.Add(sum, m.vec(v))
	}
	sum = r3.Scale(1/float64(len(m.EtoV[k])), sum)
	return [3]float64{sum.X, sum.Y, sum.Z}
}

// NumFaces returns the number of faces of element k
func (m *Mesh) NumFaces(k int) int {
	return len(m.EToE[k])
}

// Neighbor returns the element across face f of element k and its local face index, -1 on the domain boundary
func (m *Mesh) Neighbor(k, f int) (nbr, nbrFace int) {
	return m.EToE[k][f], m.EToF[k][f]
}

// FaceVertices returns the vertices of face f of element k ordered so the right hand normal points out of k
func (m *Mesh) FaceVertices(k, f int) []int {
	face := GetElementFaces(m.ElementTypes[k], m.EtoV[k])[f]
	if m.SignedVolume(k) < 0 {
		for i, j := 0, len(face)-1; i < j; i, j = i+1, j-1 {
			face[i], face[j] = face[j], face[i]
		}
	}
	return face
}

// FaceNormal returns the area weighted normal of a face polygon given by ordered vertices
func (m *Mesh) FaceNormal(face []int) [3]float64 {
	var n r3.Vec
	a := m.vec(face[0])
	for i := 1; i+1 < len(face); i++ {
		b, c := m.vec(face[i]), m.vec(face[i+1])
		n = r3.Add(n, r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
	}
	n = r3.Scale(0.5, n)
	return [3]float64{n.X, n.Y, n.Z}
}

// FaceArea returns the area of a face polygon given by ordered vertices
func (m *Mesh) FaceArea(face []int) float64 {
	n := m.FaceNormal(face)
	return r3.Norm(r3.Vec{X: n[0], Y: n[1], Z: n[2]})
}
