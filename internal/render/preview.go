/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

// Preview is the live position of a thing being dragged, in card millimeters.
type Preview struct {
	ThingID string
	OffsetX float64
	OffsetY float64
}

// ApplyPreview moves the primary card's subcard for p.ThingID so that its origin sits
// at the previewed offsets. Nothing else in the sheet changes, including the copies.
// It reports false when the subcard is not on the sheet.
func ApplyPreview(s *Sheet, p Preview) bool {
	sc := s.Subcard(p.ThingID)
	if sc == nil {
		return false
	}
	origin := s.Primary().Box
	// the label is the first child and sits at the subcard origin
	cur := sc.Children[0].Box
	dx := origin.X + p.OffsetX - cur.X
	dy := origin.Y + p.OffsetY - cur.Y
	Walk(sc, func(n *Node) bool {
		n.Box = n.Box.Translate(dx, dy)
		return true
	})
	return true
}
