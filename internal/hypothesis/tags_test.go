package hypothesis_test

import (
	"reflect"
	"testing"

	"github.com/hypograph/hypograph/internal/hypothesis"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"growth", []string{"growth"}},
		{" growth , pricing ,,", []string{"growth", "pricing"}},
		{"Growth,growth,GROWTH,retention", []string{"Growth", "retention"}},
	}
	for _, tt := range tests {
		got := hypothesis.ParseTags(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseTags(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
