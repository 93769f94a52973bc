package diskshard

import "encoding/binary"

// Record header layout, fixed-width and little-endian:
//
//	offset 0:  status byte  (statusValid or statusDelete)
//	offset 1:  key length   (uint16)
//	offset 3:  value length (uint64)
//	offset 11: key bytes, then value bytes
const (
	headerSize   = 1 + 2 + 8
	statusValid  = byte(0x02)
	statusDelete = byte(0x01)
)

// encodeHeader writes a headerSize-byte header for a record with the
// given status, key length and value length into dst.
func encodeHeader(dst []byte, status byte, keyLen uint16, valueLen uint64) {
	dst[0] = status
	binary.LittleEndian.PutUint16(dst[1:3], keyLen)
	binary.LittleEndian.PutUint64(dst[3:11], valueLen)
}

// decodeHeader parses a headerSize-byte header.
func decodeHeader(src []byte) (status byte, keyLen uint16, valueLen uint64) {
	status = src[0]
	keyLen = binary.LittleEndian.Uint16(src[1:3])
	valueLen = binary.LittleEndian.Uint64(src[3:11])
	return
}

// recordSize returns the total on-disk size of a record with the given
// key and value lengths, header included.
func recordSize(keyLen, valueLen int) int64 {
	return int64(headerSize + keyLen + valueLen)
}

// encodeRecord builds the full on-disk representation of one record:
// header, key, value, back to back.
func encodeRecord(status byte, key string, value []byte) []byte {
	buf := make([]byte, recordSize(len(key), len(value)))
	encodeHeader(buf, status, uint16(len(key)), uint64(len(value)))
	copy(buf[headerSize:], key)
	copy(buf[headerSize+len(key):], value)
	return buf
}
