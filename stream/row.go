package stream

import "encoding/binary"

// Row is one table row destined for the export/DR stream. Column
// serialization (the SQL type → bytes mapping) is the expression
// evaluator's job and out of scope here (spec §1); Row only carries
// already-serialized column values plus the six fixed metadata fields
// spec §6.2 prepends to every row.
type Row struct {
	TxnID           int64
	ExportTimestamp int64
	SequenceNumber  int64
	PartitionID     int32
	SiteID          int32
	Operation       ExportOperation

	Visible     [][]byte
	VisibleNull []bool

	// Hidden columns are threaded alongside Visible (spec §9, D.3) but
	// only included in the wire record when a consumer asks for them —
	// ordinary export/DR consumers never see them.
	Hidden     [][]byte
	HiddenNull []bool
}

func encodeI64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func encodeI32(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

// Serialize builds the full length-prefixed row record: row-header, packed
// null-mask, then the non-null column bytes in metadata-then-visible(-then-
// hidden) order.
func (r Row) Serialize(partitionIndex int32, includeHidden bool) []byte {
	meta := [][]byte{
		encodeI64(r.TxnID),
		encodeI64(r.ExportTimestamp),
		encodeI64(r.SequenceNumber),
		encodeI32(r.PartitionID),
		encodeI32(r.SiteID),
		encodeI32(int32(r.Operation)),
	}
	metaNull := make([]bool, len(meta))

	total := len(meta) + len(r.Visible)
	if includeHidden {
		total += len(r.Hidden)
	}
	cols := make([][]byte, 0, total)
	nulls := make([]bool, 0, total)

	cols = append(cols, meta...)
	nulls = append(nulls, metaNull...)
	cols = append(cols, r.Visible...)
	nulls = append(nulls, r.VisibleNull...)
	if includeHidden {
		cols = append(cols, r.Hidden...)
		nulls = append(nulls, r.HiddenNull...)
	}

	header := RowHeader{PartitionIndex: partitionIndex, ColumnCount: int32(len(cols))}
	mask := EncodeNullMask(nulls)

	bodyLen := 0
	for i, c := range cols {
		if !nulls[i] {
			bodyLen += len(c)
		}
	}

	body := make([]byte, 0, 8+len(mask)+bodyLen)
	body = append(body, header.Encode()...)
	body = append(body, mask...)
	for i, c := range cols {
		if nulls[i] {
			continue
		}
		body = append(body, c...)
	}
	return EncodeRowLengthPrefixed(body)
}
