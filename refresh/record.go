package refresh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

// Version 2 length-prefixes strings with uvarints; version 1 used one byte.
const recordFormatVersion = 2

// Record is the server-side state behind one refresh token.
type Record struct {
	SubjectID string
	TenantID  string
	IssuedAt  time.Time
	ExpireAt  time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpireAt)
}

// EncodeRecord serialises r into the compact binary form stored in Redis:
// version byte, uvarint-prefixed subject and tenant, then issue and expiry
// as big-endian unix milliseconds.
func EncodeRecord(r *Record) ([]byte, error) {
	buf := make([]byte, 0, 1+2*binary.MaxVarintLen64+len(r.SubjectID)+len(r.TenantID)+16)

	buf = append(buf, recordFormatVersion)
	buf = appendString(buf, r.SubjectID)
	buf = appendString(buf, r.TenantID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.IssuedAt.UnixMilli()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.ExpireAt.UnixMilli()))

	return buf, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// DecodeRecord is the inverse of EncodeRecord.
func DecodeRecord(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersion {
		return nil, errors.New("invalid record version")
	}

	subject, err := readString(reader)
	if err != nil {
		return nil, err
	}
	tenant, err := readString(reader)
	if err != nil {
		return nil, err
	}

	var issuedAt, expireAt int64
	if err := binary.Read(reader, binary.BigEndian, &issuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expireAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in record")
	}

	return &Record{
		SubjectID: subject,
		TenantID:  tenant,
		IssuedAt:  time.UnixMilli(issuedAt),
		ExpireAt:  time.UnixMilli(expireAt),
	}, nil
}

func readString(reader *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(reader)
	if err != nil {
		return "", err
	}
	if n > uint64(reader.Len()) {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}
