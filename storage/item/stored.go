package item

import (
	"io"

	"github.com/pkg/errors"

	"github.com/skerrydb/skerry/util"
)

// Directly serde-able item. The binary representation is as follows.
// ________________________________________________________________________________
// | 1 byte     | 1 byte         | (partition size) bytes | 2 bytes  | (key size) |
// |-------------------------------------------------------------------------------|
// | value type | partition size |       partition        | key size |    key     |
// |-------------------------------------------------------------------------------|
// | 4 bytes    | (value size) bytes |
// |---------------------------------|
// | value size |       value        |
// |---------------------------------|
//
// Delete markers are written with a zero value size regardless of the value
// carried in memory.
type StoredItem struct {
	ValueType     ValueType
	PartitionSize uint8
	KeySize       uint16
	ValueSize     uint32
	Partition     []byte
	Key           []byte
	Value         []byte
}

func (me Item) ToStoredItem() StoredItem {
	return StoredItem{
		ValueType:     me.ValueType,
		PartitionSize: uint8(len(me.Partition)),
		KeySize:       uint16(len(me.Key)),
		ValueSize:     uint32(len(me.Value)),
		Partition:     me.Partition,
		Key:           me.Key,
		Value:         me.Value,
	}
}

func (me *StoredItem) ToItem() Item {
	return Item{
		Partition: me.Partition,
		Key:       me.Key,
		Value:     me.Value,
		ValueType: me.ValueType,
	}
}

func (me *StoredItem) WriteTo(writer io.Writer) (n int64, _ error) {
	if dn, err := util.WriteUint8(writer, uint8(me.ValueType)); err != nil {
		return n + int64(dn), err
	} else {
		n += int64(dn)
	}

	if dn, err := util.WriteUint8(writer, me.PartitionSize); err != nil {
		return n + int64(dn), err
	} else {
		n += int64(dn)
	}

	if dn, err := writer.Write(me.Partition); err != nil {
		return n + int64(dn), err
	} else {
		n += int64(dn)
	}

	if dn, err := util.WriteUint16(writer, me.KeySize); err != nil {
		return n + int64(dn), err
	} else {
		n += int64(dn)
	}

	if dn, err := writer.Write(me.Key); err != nil {
		return n + int64(dn), err
	} else {
		n += int64(dn)
	}

	var (
		valueSize uint32
		value     []byte
	)
	if !me.ValueType.IsTombstone() {
		valueSize = me.ValueSize
		value = me.Value
	}

	if dn, err := util.WriteUint32(writer, valueSize); err != nil {
		return n + int64(dn), err
	} else {
		n += int64(dn)
	}

	if dn, err := writer.Write(value); err != nil {
		return n + int64(dn), err
	} else {
		n += int64(dn)
	}

	return n, nil
}

func (me *StoredItem) ReadFrom(reader io.Reader) (n int64, err error) {
	valueType, dn, err := util.ReadUint8(reader)
	n += int64(dn)
	if err != nil {
		return n, err
	}
	me.ValueType = ValueType(valueType)
	if !me.ValueType.IsValid() {
		return n, errors.Wrapf(ErrInvalidValueType, "%d", valueType)
	}

	partitionSize, dn, err := util.ReadUint8(reader)
	n += int64(dn)
	if err != nil {
		return n, err
	}
	if partitionSize == 0 {
		return n, ErrEmptyPartition
	}
	me.PartitionSize = partitionSize

	me.Partition = make([]byte, partitionSize)
	dn, err = io.ReadAtLeast(reader, me.Partition, int(partitionSize))
	n += int64(dn)
	if err != nil {
		return n, err
	}

	keySize, dn, err := util.ReadUint16(reader)
	n += int64(dn)
	if err != nil {
		return n, err
	}
	if keySize == 0 {
		return n, ErrEmptyKey
	}
	me.KeySize = keySize

	me.Key = make([]byte, keySize)
	dn, err = io.ReadAtLeast(reader, me.Key, int(keySize))
	n += int64(dn)
	if err != nil {
		return n, err
	}

	valueSize, dn, err := util.ReadUint32(reader)
	n += int64(dn)
	if err != nil {
		return n, err
	}
	me.ValueSize = valueSize

	me.Value = make([]byte, valueSize)
	dn, err = io.ReadAtLeast(reader, me.Value, int(valueSize))
	n += int64(dn)
	if err != nil {
		return n, err
	}

	if me.ValueType.IsTombstone() {
		me.Value = nil
	}

	return n, nil
}

func (me *StoredItem) SizeOf() uint64 {
	out := 1 + 1 + uint64(me.PartitionSize) + 2 + uint64(me.KeySize) + 4
	if !me.ValueType.IsTombstone() {
		out += uint64(me.ValueSize)
	}
	return out
}
