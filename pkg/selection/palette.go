package selection

import (
	"github.com/ritzau/mutual-graph/pkg/graph"
	"github.com/ritzau/mutual-graph/pkg/layout"
	"github.com/ritzau/mutual-graph/pkg/model"
)

const (
	highlightBackground = "#f6c177"
	highlightBorder     = "#845a2c"
	neighborBackground  = "#9cb9d9"
	dimBackground       = "#394b5a"
	defaultBorder       = "#2e4a67" // Node border of the default theme

	neighborOpacity  = 0.9
	selectDimOpacity = 0.35
	searchDimOpacity = 0.4
	avatarDimOpacity = 0.35

	plainBorderWidth     = 1
	avatarBorderWidth    = 2
	highlightBorderWidth = 3
)

type role int

const (
	roleBase role = iota
	roleHighlight
	roleNeighbor
	roleSearchNeighbor // Neighbour of several matches
	roleDimSelect
	roleDimSearch
)

// style computes the attributes of n for a role. withShape adds the shape
// and image fields, needed only when avatar mode changed.
func (e *Engine) style(n model.Node, r role, withShape bool) layout.NodeStyle {
	var s layout.NodeStyle
	if e.avatars {
		s = avatarStyle(n, r)
	} else {
		s = plainStyle(n, r)
	}
	s.ID = n.ID

	if withShape {
		if e.avatars {
			fallback := e.initials(n)
			s.Shape = layout.ShapeCircularImage
			s.Image = n.AvatarURL
			if s.Image == "" {
				s.Image = fallback
			}
			s.BrokenImage = fallback
		} else {
			s.Shape = layout.ShapeDot
		}
	}
	return s
}

func plainStyle(n model.Node, r role) layout.NodeStyle {
	s := layout.NodeStyle{BorderWidth: plainBorderWidth, Opacity: 1}
	switch r {
	case roleHighlight:
		s.Color = layout.NodeColor{Background: highlightBackground, Border: highlightBorder}
	case roleNeighbor:
		s.Color = layout.NodeColor{Background: neighborBackground, Border: n.Color.Border}
		s.Opacity = neighborOpacity
	case roleSearchNeighbor:
		s.Color = layout.NodeColor{Background: neighborBackground, Border: defaultBorder}
		s.Opacity = neighborOpacity
	case roleDimSelect:
		s.Color = layout.NodeColor{Background: dimBackground, Border: n.Color.Border}
		s.Opacity = selectDimOpacity
	case roleDimSearch:
		s.Color = layout.NodeColor{Background: dimBackground, Border: n.Color.Border}
		s.Opacity = searchDimOpacity
	default:
		s.Color = layout.NodeColor{Background: n.Color.Background, Border: n.Color.Border}
	}
	return s
}

// avatarStyle only touches borders; the image fills the node.
func avatarStyle(n model.Node, r role) layout.NodeStyle {
	s := layout.NodeStyle{
		Color:       layout.NodeColor{Border: n.Color.Border},
		BorderWidth: avatarBorderWidth,
		Opacity:     1,
	}
	switch r {
	case roleHighlight:
		s.Color.Border = highlightBackground
		s.BorderWidth = highlightBorderWidth
	case roleNeighbor, roleSearchNeighbor:
		s.Opacity = neighborOpacity
	case roleDimSelect, roleDimSearch:
		s.Opacity = avatarDimOpacity
	}
	return s
}

func (e *Engine) initials(n model.Node) string {
	if url, ok := e.fallbacks[n.ID]; ok {
		return url
	}
	url := graph.InitialsAvatar(n.Label, n.Color.Background)
	e.fallbacks[n.ID] = url
	return url
}
