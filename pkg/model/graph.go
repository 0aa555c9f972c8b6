package model

// Color is the fill and border colour of a node, as "#rrggbb" strings.
type Color struct {
	Background string `json:"background"`
	Border     string `json:"border"`
}

// Node is a vertex of the built graph.
type Node struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Title     string `json:"title"` // Hover text, includes the degree
	Color     Color  `json:"color"`
	Degree    int    `json:"degree"` // Undirected degree within the rendered graph
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Edge is an undirected connection. From is always lexicographically smaller
// than To so that both discovery directions collapse to one value.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NewEdge returns the canonical edge between a and b.
func NewEdge(a, b string) Edge {
	if b < a {
		a, b = b, a
	}
	return Edge{From: a, To: b}
}

// Key returns a string that identifies the edge.
func (e Edge) Key() string {
	return e.From + "|" + e.To
}

// Touches reports whether id is one of the endpoints.
func (e Edge) Touches(id string) bool {
	return e.From == id || e.To == id
}
