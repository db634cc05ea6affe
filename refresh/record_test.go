package refresh

import (
	"strings"
	"testing"
	"time"
)

func TestRecordEncodeDecode(t *testing.T) {
	now := time.UnixMilli(time.Now().UnixMilli())
	rec := &Record{SubjectID: "user_123", TenantID: "company_123", IssuedAt: now, ExpireAt: now.Add(time.Hour)}

	data, err := EncodeRecord(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SubjectID != rec.SubjectID || got.TenantID != rec.TenantID ||
		!got.IssuedAt.Equal(rec.IssuedAt) || !got.ExpireAt.Equal(rec.ExpireAt) {
		t.Fatalf("roundtrip mismatch: %+v vs %+v", got, rec)
	}
}

func TestRecordDecodeRejectsInvalid(t *testing.T) {
	valid, err := EncodeRecord(&Record{SubjectID: "u", ExpireAt: time.Now()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	inputs := [][]byte{
		nil,
		{2},
		valid[:len(valid)-1],
		append(append([]byte{}, valid...), 0),
	}
	for i, in := range inputs {
		if _, err := DecodeRecord(in); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestRecordLongFieldsRoundTrip(t *testing.T) {
	now := time.UnixMilli(time.Now().UnixMilli())
	rec := &Record{
		SubjectID: strings.Repeat("s", 300),
		TenantID:  strings.Repeat("t", 70000),
		IssuedAt:  now,
		ExpireAt:  now.Add(time.Hour),
	}

	data, err := EncodeRecord(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SubjectID != rec.SubjectID || got.TenantID != rec.TenantID {
		t.Fatalf("long fields did not survive: subject=%d tenant=%d", len(got.SubjectID), len(got.TenantID))
	}
}

func TestRecordDecodeRejectsOldVersionAndOversizedLength(t *testing.T) {
	inputs := map[string][]byte{
		"version 1":          {1, 1, 'u', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		"length beyond data": {recordFormatVersion, 0xff, 0xff, 0xff, 0xff, 0x0f, 'u'},
	}
	for name, in := range inputs {
		if _, err := DecodeRecord(in); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func FuzzRecordDecode(f *testing.F) {
	seed, _ := EncodeRecord(&Record{SubjectID: "u", TenantID: "t", ExpireAt: time.Unix(1, 0)})
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{recordFormatVersion, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := DecodeRecord(data)
		if err != nil {
			return
		}
		if _, err := EncodeRecord(rec); err != nil {
			t.Fatalf("re-encode failed: %v", err)
		}
	})
}
