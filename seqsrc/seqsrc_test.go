package seqsrc

import "testing"

type fakeSource struct {
	recs []Record
	i    int
}

func (f *fakeSource) Next() (Record, bool, error) {
	if f.i >= len(f.recs) {
		return Record{}, false, nil
	}
	r := f.recs[f.i]
	f.i++
	return r, true, nil
}

func (f *fakeSource) Close() error { return nil }

func TestPairedSourceZipsMates(t *testing.T) {
	p := &PairedSource{
		m1: &fakeSource{recs: []Record{{ID: "a/1"}, {ID: "b/1"}}},
		m2: &fakeSource{recs: []Record{{ID: "a/2"}, {ID: "b/2"}}},
	}
	var got []string
	for {
		r1, r2, ok, err := p.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, r1.ID, r2.ID)
	}
	want := []string{"a/1", "a/2", "b/1", "b/2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPairedSourceDetectsMateCountMismatch(t *testing.T) {
	p := &PairedSource{
		m1: &fakeSource{recs: []Record{{ID: "a/1"}, {ID: "b/1"}}},
		m2: &fakeSource{recs: []Record{{ID: "a/2"}}},
	}
	if _, _, _, err := p.Next(); err != nil {
		t.Fatalf("first pair should succeed: %v", err)
	}
	if _, _, _, err := p.Next(); err != ErrMateCountMismatch {
		t.Fatalf("expected ErrMateCountMismatch, got %v", err)
	}
}
