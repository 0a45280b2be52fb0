package domain

import "testing"

func TestDocumentSourceFallsBackToUnknown(t *testing.T) {
	cases := []struct {
		name string
		doc  Document
		want string
	}{
		{name: "nil metadata", doc: Document{Content: "x"}, want: UnknownSource},
		{name: "missing key", doc: Document{Metadata: Metadata{"page": 1}}, want: UnknownSource},
		{name: "empty value", doc: Document{Metadata: Metadata{"source": ""}}, want: UnknownSource},
		{name: "present", doc: Document{Metadata: Metadata{"source": "constitution.pdf"}}, want: "constitution.pdf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.doc.Source(); got != tc.want {
				t.Fatalf("Source() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFilterMatchesComparesScalarsByValue(t *testing.T) {
	meta := Metadata{"article": "5", "page": 3}

	if !(Filter{"article": "5"}).Matches(meta) {
		t.Fatalf("expected article filter to match")
	}
	if !(Filter{"page": "3"}).Matches(meta) {
		t.Fatalf("expected page filter to match across int/string")
	}
	if (Filter{"chapter": "2"}).Matches(meta) {
		t.Fatalf("expected missing key to reject")
	}
	if !(Filter(nil)).Matches(meta) {
		t.Fatalf("expected empty filter to match everything")
	}
}
