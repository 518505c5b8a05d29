// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package contract holds the soft-limit constants shared across the
// ingestion pipeline: the default per-file size ceiling the scanner
// enforces; a larger file is skipped and counted under
// SkipReasonExcludedByGlob.
//
//	opts := scanner.Options{MaxFileSize: contract.MaxFileSizeBytes()}
//
// The limit is overridable via MAGELLAN_MAX_FILE_SIZE_BYTES for
// environments indexing repositories with unusually large source files.
package contract
