// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package genegraph

import (
	"gonum.org/v1/gonum/graph/encoding/dot"
)

// DOT renders g as a DOT-format graph description, labelling each node
// with its sample:gene vertex name, for visual debugging of ideal
// components (SUPPLEMENTED FEATURES).
func (g *Graph) DOT() ([]byte, error) {
	return dot.Marshal(g.g, "genematches", "", "\t")
}
