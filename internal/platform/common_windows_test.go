//go:build windows

package platform

import "testing"

func TestBuildWindowsCommandLine(t *testing.T) {
	tests := []struct {
		name       string
		executable string
		args       []string
		want       string
	}{
		{
			name:       "headless with spaced config",
			executable: `C:\Program Files\motdwatch\motdwatch.exe`,
			args:       []string{headlessArg, configArg, `C:\cfg dir\config.json`},
			want:       `"C:\Program Files\motdwatch\motdwatch.exe" -no-console -config "C:\cfg dir\config.json"`,
		},
		{
			name:       "plain executable",
			executable: `C:\motdwatch.exe`,
			want:       `C:\motdwatch.exe`,
		},
		{
			name:       "quotes and empty arg",
			executable: `C:\motdwatch.exe`,
			args:       []string{`say "hi"`, ""},
			want:       `C:\motdwatch.exe "say \"hi\"" ""`,
		},
	}

	for _, tt := range tests {
		if got := buildWindowsCommandLine(tt.executable, tt.args); got != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}
