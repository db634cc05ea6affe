package internaldefs

import "testing"

func TestCounterDefsUnique(t *testing.T) {
	seenID := map[uint16]bool{}
	seenName := map[string]bool{}
	for _, def := range CounterDefs {
		if seenID[uint16(def.ID)] {
			t.Fatalf("duplicate metric id %d", def.ID)
		}
		if seenName[def.Name] {
			t.Fatalf("duplicate metric name %s", def.Name)
		}
		seenID[uint16(def.ID)] = true
		seenName[def.Name] = true
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(HistogramBounds) != len(got) || len(HistogramBoundSuffix) != len(got) || len(HistogramUpperBounds) != len(got)-1 {
		t.Fatal("bucket bounds out of sync with bucket count")
	}
}
