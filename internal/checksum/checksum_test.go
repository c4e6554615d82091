package checksum

import (
	"bytes"
	"io"
	"testing"
)

func TestSeekerMatchesSum(t *testing.T) {
	data := []byte("tonearm")
	r := bytes.NewReader(data)
	got, err := Seeker(r)
	if err != nil {
		t.Fatal(err)
	}
	if got != Sum(data) {
		t.Errorf("Seeker = %s, Sum = %s", got, Sum(data))
	}
	rest, _ := io.ReadAll(r)
	if !bytes.Equal(rest, data) {
		t.Error("reader not rewound")
	}
	if ETag("ab") != `"ab"` {
		t.Errorf("ETag = %s", ETag("ab"))
	}
}
