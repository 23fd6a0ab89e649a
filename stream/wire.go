// Wire encoding for export/DR blocks (spec §6.2): a fixed 36-byte
// big-endian meta-header per block, followed by length-prefixed row
// records, each with its own row-header and packed null-mask.
package stream

import (
	"encoding/binary"
	"fmt"
)

// MetaHeaderSize is the fixed size of the per-block meta-header.
const MetaHeaderSize = 8 + 8 + 4 + 8 + 8

// MetaHeader is the fixed header every pushed block carries ahead of its
// row records.
type MetaHeader struct {
	StartSequenceNumber     int64
	CommittedSequenceNumber int64
	RowCount                int32
	LastSpUniqueID          int64
	LastCommittedSpHandle   int64
}

// Encode writes the header in big-endian order: startSequenceNumber,
// committedSequenceNumber, rowCount, lastSpUniqueId, lastCommittedSpHandle.
func (h MetaHeader) Encode() []byte {
	buf := make([]byte, MetaHeaderSize)
	binary.BigEndian.PutUint64(buf[0:8], uint64(h.StartSequenceNumber))
	binary.BigEndian.PutUint64(buf[8:16], uint64(h.CommittedSequenceNumber))
	binary.BigEndian.PutUint32(buf[16:20], uint32(h.RowCount))
	binary.BigEndian.PutUint64(buf[20:28], uint64(h.LastSpUniqueID))
	binary.BigEndian.PutUint64(buf[28:36], uint64(h.LastCommittedSpHandle))
	return buf
}

// DecodeMetaHeader parses a MetaHeader from the front of buf.
func DecodeMetaHeader(buf []byte) (MetaHeader, error) {
	if len(buf) < MetaHeaderSize {
		return MetaHeader{}, fmt.Errorf("stream: short meta-header, have %d want %d", len(buf), MetaHeaderSize)
	}
	return MetaHeader{
		StartSequenceNumber:     int64(binary.BigEndian.Uint64(buf[0:8])),
		CommittedSequenceNumber: int64(binary.BigEndian.Uint64(buf[8:16])),
		RowCount:                int32(binary.BigEndian.Uint32(buf[16:20])),
		LastSpUniqueID:          int64(binary.BigEndian.Uint64(buf[20:28])),
		LastCommittedSpHandle:   int64(binary.BigEndian.Uint64(buf[28:36])),
	}, nil
}

// ExportOperation tags what a row represents in the export/DR stream.
type ExportOperation int32

const (
	Insert ExportOperation = iota
	Delete
	UpdateOld
	UpdateNew
	Migrate
)

func (op ExportOperation) String() string {
	switch op {
	case Insert:
		return "INSERT"
	case Delete:
		return "DELETE"
	case UpdateOld:
		return "UPDATE_OLD"
	case UpdateNew:
		return "UPDATE_NEW"
	case Migrate:
		return "MIGRATE"
	default:
		return "UNKNOWN"
	}
}

// MetadataColumns is the fixed, ordered set of columns prepended to every
// exported/replicated row ahead of the table's own columns (spec §6.2, D.1).
var MetadataColumns = []string{
	"VOLT_TRANSACTION_ID",
	"VOLT_EXPORT_TIMESTAMP",
	"VOLT_EXPORT_SEQUENCE_NUMBER",
	"VOLT_PARTITION_ID",
	"VOLT_SITE_ID",
	"VOLT_EXPORT_OPERATION",
}

// RowHeader precedes every row record: which partition it belongs to and
// how many columns follow (metadata columns plus visible table columns).
type RowHeader struct {
	PartitionIndex int32
	ColumnCount    int32
}

func (h RowHeader) Encode() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(h.PartitionIndex))
	binary.BigEndian.PutUint32(buf[4:8], uint32(h.ColumnCount))
	return buf
}

func DecodeRowHeader(buf []byte) (RowHeader, error) {
	if len(buf) < 8 {
		return RowHeader{}, fmt.Errorf("stream: short row-header, have %d want 8", len(buf))
	}
	return RowHeader{
		PartitionIndex: int32(binary.BigEndian.Uint32(buf[0:4])),
		ColumnCount:    int32(binary.BigEndian.Uint32(buf[4:8])),
	}, nil
}

// NullMaskSize returns the number of bytes needed to pack one null bit per
// column.
func NullMaskSize(columnCount int) int {
	return (columnCount + 7) / 8
}

// EncodeNullMask packs one bit per entry in isNull (true means the column
// at that index is null), MSB-first within each byte.
func EncodeNullMask(isNull []bool) []byte {
	mask := make([]byte, NullMaskSize(len(isNull)))
	for i, null := range isNull {
		if !null {
			continue
		}
		mask[i/8] |= 1 << (7 - uint(i%8))
	}
	return mask
}

// DecodeNullMask unpacks columnCount null bits from mask.
func DecodeNullMask(mask []byte, columnCount int) []bool {
	out := make([]bool, columnCount)
	for i := range out {
		out[i] = mask[i/8]&(1<<(7-uint(i%8))) != 0
	}
	return out
}

// EncodeRowLengthPrefixed wraps an already-encoded row record with its
// 4-byte big-endian length prefix, as the per-row framing in spec §6.2
// requires.
func EncodeRowLengthPrefixed(row []byte) []byte {
	out := make([]byte, 4+len(row))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(row)))
	copy(out[4:], row)
	return out
}
