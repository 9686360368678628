/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */


// Package ui is the desktop editor. The Fyne window is only compiled with
// -tags fyne; pointer handling and the sheet viewport are plain Go so they can
// be tested headless.
package ui

import "rangecard/internal/export"

// Options configure the desktop editor.
type Options struct {
	// Export is used by the print menu.
	Export export.Options
	// Title of the main window.
	Title string
}

func (o Options) title() string {
	if o.Title != "" {
		return o.Title
	}
	return "Range Card Editor"
}
