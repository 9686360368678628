/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements card persistence.
// The canonical form is the JSON document {cordLength, distances, things}.
// FileStore writes it transactionally with timestamped backups, SQLiteStore keeps it
// in an embedded database with a short revision history, MemoryStore is for tests
// and ephemeral sessions. Import validation and seed loading live here as well.
package storage
