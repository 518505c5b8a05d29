// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolID_Deterministic(t *testing.T) {
	a := SymbolID("rust", "mycrate::foo::bar", SpanFingerprint(10, 20))
	b := SymbolID("rust", "mycrate::foo::bar", SpanFingerprint(10, 20))
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestSymbolID_DistinctInputsDiffer(t *testing.T) {
	base := SymbolID("rust", "mycrate::foo::bar", SpanFingerprint(10, 20))

	assert.NotEqual(t, base, SymbolID("python", "mycrate::foo::bar", SpanFingerprint(10, 20)))
	assert.NotEqual(t, base, SymbolID("rust", "mycrate::foo::baz", SpanFingerprint(10, 20)))
	assert.NotEqual(t, base, SymbolID("rust", "mycrate::foo::bar", SpanFingerprint(10, 21)))
}

func TestSpanFingerprint(t *testing.T) {
	assert.Equal(t, "10-20", SpanFingerprint(10, 20))
}

func TestContentHash_Deterministic(t *testing.T) {
	h1 := ContentHash([]byte("hello"))
	h2 := ContentHash([]byte("hello"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, ContentHash([]byte("world")))
}
