package monitor

import (
	"testing"
)

func TestParseMouseLocation(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    Point
		wantErr bool
	}{
		{
			name:   "full shell output",
			output: "X=1280\nY=720\nSCREEN=0\nWINDOW=48234503\n",
			want:   Point{X: 1280, Y: 720},
		},
		{
			name:   "order and whitespace do not matter",
			output: "  SCREEN=1\r\n Y=5 \nX=0\n",
			want:   Point{X: 0, Y: 5},
		},
		{
			name:    "missing Y",
			output:  "X=10\nSCREEN=0\n",
			wantErr: true,
		},
		{
			name:    "non-numeric coordinate",
			output:  "X=ten\nY=5\n",
			wantErr: true,
		},
		{
			name:    "empty output",
			output:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMouseLocation([]byte(tt.output))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMouseLocation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMouseLocation() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewSamplerRejectsUnknownName(t *testing.T) {
	if _, err := NewSampler("wayland-magic"); err == nil {
		t.Fatal("expected error for unknown sampler")
	}
	s, err := NewSampler(SamplerNone)
	if err != nil || s != nil {
		t.Fatalf("NewSampler(none) = %v, %v; want nil, nil", s, err)
	}
}
