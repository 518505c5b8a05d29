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

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIngestion_ObserveReconcile_IncrementsCounters(t *testing.T) {
	Ingestion.init()
	beforeSymbols := testutil.ToFloat64(Ingestion.symbolsIndexed)
	beforeRefs := testutil.ToFloat64(Ingestion.referencesIndexed)
	beforeCalls := testutil.ToFloat64(Ingestion.callsIndexed)

	Ingestion.ObserveReconcile(10*time.Millisecond, false, 2, 1, 3)

	assert.Equal(t, beforeSymbols+2, testutil.ToFloat64(Ingestion.symbolsIndexed))
	assert.Equal(t, beforeRefs+1, testutil.ToFloat64(Ingestion.referencesIndexed))
	assert.Equal(t, beforeCalls+3, testutil.ToFloat64(Ingestion.callsIndexed))
}

func TestIngestion_ObserveReconcile_SkippedDoesNotCountAsReconciled(t *testing.T) {
	Ingestion.init()
	beforeSkipped := testutil.ToFloat64(Ingestion.filesSkipped)

	Ingestion.ObserveReconcile(time.Millisecond, true, 0, 0, 0)

	assert.Equal(t, beforeSkipped+1, testutil.ToFloat64(Ingestion.filesSkipped))
}

func TestIngestion_IncParseError(t *testing.T) {
	Ingestion.init()
	before := testutil.ToFloat64(Ingestion.parseErrors)

	Ingestion.IncParseError()

	assert.Equal(t, before+1, testutil.ToFloat64(Ingestion.parseErrors))
}

func TestWatch_ObserveDrain_RecordsBatchSizeAndFires(t *testing.T) {
	Watch.init()
	before := testutil.ToFloat64(Watch.debounceFires)

	Watch.ObserveDrain(5)

	assert.Equal(t, before+1, testutil.ToFloat64(Watch.debounceFires))
}

func TestWatch_IncEventAndError(t *testing.T) {
	Watch.init()
	beforeEvents := testutil.ToFloat64(Watch.eventsObserved)
	beforeErrors := testutil.ToFloat64(Watch.watchErrors)

	Watch.IncEvent()
	Watch.IncError()

	assert.Equal(t, beforeEvents+1, testutil.ToFloat64(Watch.eventsObserved))
	assert.Equal(t, beforeErrors+1, testutil.ToFloat64(Watch.watchErrors))
}
