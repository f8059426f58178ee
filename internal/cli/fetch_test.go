package cli

import (
	"net/url"
	"reflect"
	"testing"
)

func TestParsePairs(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    url.Values
		wantErr bool
	}{
		{"empty", nil, nil, false},
		{"single", []string{"q=go"}, url.Values{"q": {"go"}}, false},
		{"repeated key", []string{"tag=a", "tag=b"}, url.Values{"tag": {"a", "b"}}, false},
		{"empty value", []string{"flag="}, url.Values{"flag": {""}}, false},
		{"value with equals", []string{"expr=a=b"}, url.Values{"expr": {"a=b"}}, false},
		{"missing equals", []string{"nope"}, nil, true},
		{"empty key", []string{"=value"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePairs(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePairs: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
