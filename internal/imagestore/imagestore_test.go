package imagestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyFromURI(t *testing.T) {
	tests := []struct {
		uri    string
		wantOK bool
		want   string
	}{
		{uri: LocalURI("point_1_abc.jpg"), wantOK: true, want: "point_1_abc.jpg"},
		{uri: "https://example.com/a.jpg"},
		{uri: "file:///sdcard/DCIM/a.jpg"},
		{uri: "local:"},
		{uri: ""},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			key, ok := KeyFromURI(tt.uri)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, key)
		})
	}
}
