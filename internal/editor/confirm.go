/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "errors"

var ErrConfirmationUsed = errors.New("confirmation already accepted")

// Confirmation is a pending operation that needs an explicit yes from the user.
// Dropping it is the same as answering no.
type Confirmation struct {
	Message string
	accept  func() error
	used    bool
}

// Accept runs the pending operation once.
func (c *Confirmation) Accept() error {
	if c.used {
		return ErrConfirmationUsed
	}
	c.used = true
	return c.accept()
}
