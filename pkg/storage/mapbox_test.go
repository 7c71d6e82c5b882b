package storage

import "testing"

func TestNormalizeMapboxURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"mapbox://mapbox.streets", "https://api.mapbox.com/v4/mapbox.streets.json?secure&access_token=tok"},
		{"mapbox://styles/user/bright", "https://api.mapbox.com/styles/v1/user/bright?access_token=tok"},
		{"mapbox://fonts/user/Open Sans/0-255.pbf", "https://api.mapbox.com/fonts/v1/user/Open Sans/0-255.pbf?access_token=tok"},
		{"mapbox://sprites/user/bright@2x.png", "https://api.mapbox.com/styles/v1/user/bright/sprite@2x.png?access_token=tok"},
		{"mapbox://sprites/user/bright.json", "https://api.mapbox.com/styles/v1/user/bright/sprite.json?access_token=tok"},
		{"mapbox://tiles/mapbox.streets/1/0/1.vector.pbf", "https://api.mapbox.com/v4/mapbox.streets/1/0/1.vector.pbf?access_token=tok"},
		{"https://tiles.example.com/0/0/0.pbf", "https://tiles.example.com/0/0/0.pbf"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeMapboxURL(tt.in, "tok")
			if err != nil {
				t.Fatalf("NormalizeMapboxURL(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeMapboxURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeMapboxURLRequiresToken(t *testing.T) {
	if _, err := NormalizeMapboxURL("mapbox://mapbox.streets", ""); err == nil {
		t.Error("expected error without access token")
	}
	if got, err := NormalizeMapboxURL("https://example.com/a.json", ""); err != nil || got != "https://example.com/a.json" {
		t.Errorf("non-mapbox URL changed: %q, %v", got, err)
	}
}
