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

package export

import (
	"context"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
)

// SCIP symbol scheme (§4.9): every emitted symbol begins with "magellan ".
const scipScheme = "magellan "

// SCIP protobuf field numbers, scip.Index / scip.Document / scip.Occurrence
// / scip.SymbolInformation as defined by the SCIP wire format. Only
// documents, occurrences and half-open 4-tuple ranges are emitted; symbol
// roles are not written.
const (
	fieldIndexDocuments = 3

	fieldDocumentRelativePath = 2
	fieldDocumentOccurrences  = 3
	fieldDocumentSymbols      = 4

	fieldOccurrenceRange  = 1
	fieldOccurrenceSymbol = 2

	fieldSymbolInfoSymbol = 1
)

// SCIP writes a binary SCIP index for the filtered snapshot: one
// Document per distinct file_path, one Occurrence per Symbol node within
// it, at the symbol's half-open [line_start,col_start,line_end,col_end]
// range, and one SymbolInformation per unique symbol.
func SCIP(ctx context.Context, b storage.Backend, snap storage.SnapshotID, filter Filter, w io.Writer) error {
	nodes, err := collectNodes(ctx, b, snap, filter)
	if err != nil {
		return err
	}

	byFile := make(map[string][]NodeRecord)
	var order []string
	for _, n := range nodes {
		if n.Kind != model.KindSymbol {
			continue
		}
		if _, ok := byFile[n.FilePath]; !ok {
			order = append(order, n.FilePath)
		}
		byFile[n.FilePath] = append(byFile[n.FilePath], n)
	}

	var out []byte
	for _, path := range order {
		doc := encodeDocument(path, byFile[path])
		out = protowire.AppendTag(out, fieldIndexDocuments, protowire.BytesType)
		out = protowire.AppendBytes(out, doc)
	}
	_, err = w.Write(out)
	return err
}

func encodeDocument(path string, symbols []NodeRecord) []byte {
	var doc []byte
	doc = protowire.AppendTag(doc, fieldDocumentRelativePath, protowire.BytesType)
	doc = protowire.AppendString(doc, path)

	for _, n := range symbols {
		sp, ok := n.Payload.(*model.SymbolPayload)
		if !ok {
			continue
		}
		symbolID := scipScheme + sp.SymbolID

		occ := encodeOccurrence(sp, symbolID)
		doc = protowire.AppendTag(doc, fieldDocumentOccurrences, protowire.BytesType)
		doc = protowire.AppendBytes(doc, occ)

		info := encodeSymbolInformation(symbolID)
		doc = protowire.AppendTag(doc, fieldDocumentSymbols, protowire.BytesType)
		doc = protowire.AppendBytes(doc, info)
	}
	return doc
}

// encodeOccurrence packs the half-open 4-tuple range the spec requires:
// [line_start, col_start, line_end, col_end], 0-indexed the way SCIP's
// range field is documented to be (the extraction layer's LineCol is
// 1-indexed for StartLine/EndLine, 0-indexed for columns; line values are
// adjusted down by one here).
func encodeOccurrence(sp *model.SymbolPayload, symbolID string) []byte {
	var rangeBuf []byte
	for _, v := range []int{sp.LineCol.StartLine - 1, sp.LineCol.StartCol, sp.LineCol.EndLine - 1, sp.LineCol.EndCol} {
		rangeBuf = protowire.AppendVarint(rangeBuf, protowire.EncodeZigZag(int64(v)))
	}

	var occ []byte
	occ = protowire.AppendTag(occ, fieldOccurrenceRange, protowire.BytesType)
	occ = protowire.AppendBytes(occ, rangeBuf)
	occ = protowire.AppendTag(occ, fieldOccurrenceSymbol, protowire.BytesType)
	occ = protowire.AppendString(occ, symbolID)
	return occ
}

func encodeSymbolInformation(symbolID string) []byte {
	var info []byte
	info = protowire.AppendTag(info, fieldSymbolInfoSymbol, protowire.BytesType)
	info = protowire.AppendString(info, symbolID)
	return info
}
