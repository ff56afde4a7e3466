package client

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		path string
		want Type
	}{
		{
			name: "retail install dir",
			path: `C:\Program Files\World of Warcraft\_retail_\Wow.exe`,
			want: Retail,
		},
		{
			name: "classic install dir",
			path: `C:\Program Files\World of Warcraft\_classic_\WowClassic.exe`,
			want: Classic,
		},
		{
			name: "classic era install dir",
			path: `C:\Program Files\World of Warcraft\_classic_era_\WowClassic.exe`,
			want: ClassicEra,
		},
		{
			name: "mac retail bundle",
			path: "/Applications/World of Warcraft/_retail_/World of Warcraft.app/Contents/MacOS/World of Warcraft",
			want: Retail,
		},
		{
			name: "bare wow.exe",
			path: "Wow.exe",
			want: Retail,
		},
		{
			name: "bare classic executable",
			path: "/tmp/WowClassic.exe",
			want: Classic,
		},
		{
			name: "mac binary name",
			path: "/tmp/World of Warcraft",
			want: Retail,
		},
		{
			name: "unrelated binary",
			path: "/usr/bin/patchme",
			want: Unknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.path); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestUsesEd25519(t *testing.T) {
	tests := []struct {
		clientType Type
		want       bool
	}{
		{Retail, true},
		{Classic, true},
		{ClassicEra, false},
		{Unknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.clientType.String(), func(t *testing.T) {
			if got := tt.clientType.UsesEd25519(); got != tt.want {
				t.Errorf("%v.UsesEd25519() = %v, want %v", tt.clientType, got, tt.want)
			}
		})
	}
}
