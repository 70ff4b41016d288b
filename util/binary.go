package util

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/google/uuid"
)

func WriteUint8(writer io.Writer, v uint8) (n int, _ error) {
	word := [1]byte{v}
	return writer.Write(word[:])
}

func WriteUint16(writer io.Writer, v uint16) (n int, _ error) {
	var word [2]byte
	binary.BigEndian.PutUint16(word[:], v)
	return writer.Write(word[:])
}

func WriteUint32(writer io.Writer, v uint32) (n int, _ error) {
	var word [4]byte
	binary.BigEndian.PutUint32(word[:], v)
	return writer.Write(word[:])
}

func ReadUint8(reader io.Reader) (value uint8, n int, _ error) {
	var word [1]byte
	n, err := io.ReadAtLeast(reader, word[:], len(word))
	if err != nil {
		return 0, n, err
	}
	return word[0], n, nil
}

func ReadUint16(reader io.Reader) (value uint16, n int, _ error) {
	var word [2]byte
	n, err := io.ReadAtLeast(reader, word[:], len(word))
	if err != nil {
		return 0, n, err
	}
	return binary.BigEndian.Uint16(word[:]), n, nil
}

func ReadUint32(reader io.Reader) (value uint32, n int, _ error) {
	var word [4]byte
	n, err := io.ReadAtLeast(reader, word[:], len(word))
	if err != nil {
		return 0, n, err
	}
	return binary.BigEndian.Uint32(word[:]), n, nil
}

func NewRandomUUIDBytes() (out [16]byte) {
	uuidBytes, _ := uuid.Must(uuid.NewRandom()).MarshalBinary()
	copy(out[:], uuidBytes)
	return out
}

func UUIDFromBytes(bytes [16]byte) uuid.UUID {
	return uuid.Must(uuid.FromBytes(bytes[:]))
}

// https://blog.merovius.de/posts/2024-05-06-pointer-constraints/
type WriterToPtr[M any] interface {
	*M
	io.WriterTo
}

func ValueToBytes[T any, PT WriterToPtr[T]](value T) ([]byte, error) {
	var buf bytes.Buffer
	_, err := (PT)(&value).WriteTo(&buf)
	return buf.Bytes(), err
}

type ReaderFromPtr[M any] interface {
	*M
	io.ReaderFrom
}

func ValueFromBytes[T any, PT ReaderFromPtr[T]](b []byte) (T, error) {
	var buf bytes.Buffer
	_, _ = buf.Write(b)
	var value T
	_, err := (PT)(&value).ReadFrom(&buf)
	return value, err
}
