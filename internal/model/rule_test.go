package model

import "testing"

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		id   int
		want Category
	}{
		{0, CategoryUnknown},
		{1, CategoryContext},
		{50, CategoryContext},
		{51, CategoryProperty},
		{100, CategoryProperty},
		{101, CategoryWording},
		{150, CategoryWording},
		{151, CategoryUnknown},
		{-3, CategoryUnknown},
	}

	for _, tt := range tests {
		if got := CategoryOf(tt.id); got != tt.want {
			t.Errorf("CategoryOf(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestCategoryRangeAgreesWithCategoryOf(t *testing.T) {
	for _, c := range Categories {
		first, last := c.Range()
		for id := first; id <= last; id++ {
			if got := CategoryOf(id); got != c {
				t.Fatalf("rule %d in %s range classified as %q", id, c, got)
			}
		}
	}
}

func TestParseCategory(t *testing.T) {
	if c, ok := ParseCategory("wording"); !ok || c != CategoryWording {
		t.Errorf("expected wording, got %q (%v)", c, ok)
	}
	if _, ok := ParseCategory("colour"); ok {
		t.Error("expected unknown category to be rejected")
	}
}
