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

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/kraklabs/magellan/internal/model"
)

// EncodePayload serializes a node/edge payload to JSON bytes. Both backend
// implementations share this codec so that payload shape stays identical
// regardless of which physical tables hold the bytes.
func EncodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return b, nil
}

// DecodePayload deserializes JSON bytes back into the concrete payload
// struct matching kind.
func DecodePayload(kind model.NodeKind, raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var target any
	switch kind {
	case model.KindFile:
		target = &model.FilePayload{}
	case model.KindSymbol:
		target = &model.SymbolPayload{}
	case model.KindRefernc:
		target = &model.ReferencePayload{}
	case model.KindCall:
		target = &model.CallPayload{}
	case model.KindAstNode:
		target = &model.AstNodePayload{}
	case model.KindCfgBlock:
		target = &model.CfgBlockPayload{}
	default:
		return nil, fmt.Errorf("%w: unknown node kind %q", ErrSerialization, kind)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return target, nil
}
