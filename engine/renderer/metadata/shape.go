package metadata

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/instancer/engine/math"
)

/**
 * @brief Base geometry shared by every instance drawn with it.
 * Shapes are compared by pointer identity; two shapes with the same
 * vertices are still two shapes.
 */
type Shape struct {
	/** @brief The shape name, used in logs and traces. */
	Name string
	/** @brief The vertices, laid out for a triangle fan. */
	Vertices []math.Vertex2D
	/**
	 * @brief Optional Indices, in triangle fan order like the vertices:
	 * {0, 1, 2, 3} for a quad. When present the shape is drawn indexed.
	 */
	Indices []uint32
	/** @brief The extents of the shape in local coordinates. */
	Extents math.Extents2D
}

// NewShape creates a shape from raw vertices. An empty name gets a generated one.
func NewShape(name string, vertices []math.Vertex2D, indices []uint32) *Shape {
	if name == "" {
		name = "shape-" + uuid.New().String()
	}
	s := &Shape{
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
	}
	s.Extents = extentsOf(vertices)
	return s
}

/**
 * @brief Creates a width x height quad centred on the origin, wound as a
 * fan: bottom-left, bottom-right, top-right, top-left.
 */
func NewQuad(name string, width, height float32) *Shape {
	hw, hh := width*0.5, height*0.5
	return NewShape(name, []math.Vertex2D{
		{Position: math.NewVec2(-hw, -hh), Texcoord: math.NewVec2(0, 1)},
		{Position: math.NewVec2(hw, -hh), Texcoord: math.NewVec2(1, 1)},
		{Position: math.NewVec2(hw, hh), Texcoord: math.NewVec2(1, 0)},
		{Position: math.NewVec2(-hw, hh), Texcoord: math.NewVec2(0, 0)},
	}, nil)
}

/**
 * @brief Creates a regular polygon with the given number of sides. The
 * texture is mapped onto the polygon's bounding square.
 */
func NewRegularPolygon(name string, sides int, radius float32) *Shape {
	if sides < 3 {
		sides = 3
	}
	vertices := make([]math.Vertex2D, 0, sides)
	step := math.K_PI_2 / float32(sides)
	for i := 0; i < sides; i++ {
		rot := math.NewMat3Rotation(step * float32(i))
		p := rot.MulVec3(math.NewVec3(0, radius, 1))
		vertices = append(vertices, math.Vertex2D{
			Position: math.NewVec2(p.X, p.Y),
			Texcoord: math.NewVec2(0.5+p.X/(2*radius), 0.5-p.Y/(2*radius)),
		})
	}
	return NewShape(name, vertices, nil)
}

// Indexed reports whether the shape carries an index list.
func (s *Shape) Indexed() bool {
	return len(s.Indices) > 0
}

func (s *Shape) VertexCount() uint32 {
	return uint32(len(s.Vertices))
}

func (s *Shape) IndexCount() uint32 {
	return uint32(len(s.Indices))
}

func extentsOf(vertices []math.Vertex2D) math.Extents2D {
	if len(vertices) == 0 {
		return math.Extents2D{}
	}
	ext := math.Extents2D{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		ext.Min.X = min(ext.Min.X, v.Position.X)
		ext.Min.Y = min(ext.Min.Y, v.Position.Y)
		ext.Max.X = max(ext.Max.X, v.Position.X)
		ext.Max.Y = max(ext.Max.Y, v.Position.Y)
	}
	return ext
}
