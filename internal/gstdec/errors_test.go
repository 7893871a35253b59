package gstdec

import "testing"

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want ErrorCategory
	}{
		{
			name: "connection refused",
			msg:  "Could not connect to server (Connection refused)",
			want: CategoryNetwork,
		},
		{
			name: "dns failure",
			msg:  "Failed to resolve hostname camera.local",
			want: CategoryNetwork,
		},
		{
			name: "transport timeout",
			msg:  "TCP read timeout after 10s",
			want: CategoryNetwork,
		},
		{
			name: "unauthorized",
			msg:  "Unauthorized (401): bad credentials",
			want: CategoryAuth,
		},
		{
			name: "forbidden",
			msg:  "Server replied 403 Forbidden",
			want: CategoryAuth,
		},
		{
			name: "missing decoder",
			msg:  "Your GStreamer installation is missing plugin: avdec_h264",
			want: CategoryCodec,
		},
		{
			name: "caps negotiation",
			msg:  "Internal data stream error: streaming stopped, reason not-negotiated",
			want: CategoryCodec,
		},
		{
			name: "auth wins over network keywords",
			msg:  "rtsp connection rejected: authentication required",
			want: CategoryAuth,
		},
		{
			name: "unclassified",
			msg:  "something exploded",
			want: CategoryUnknown,
		},
		{
			name: "empty",
			msg:  "",
			want: CategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyMessage(tt.msg); got != tt.want {
				t.Errorf("ClassifyMessage(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestClassify_NilError(t *testing.T) {
	if got := Classify(nil); got != CategoryUnknown {
		t.Errorf("Classify(nil) = %v, want CategoryUnknown", got)
	}
}

func TestErrorCategory_String(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     string
	}{
		{CategoryNetwork, "network"},
		{CategoryCodec, "codec"},
		{CategoryAuth, "auth"},
		{CategoryUnknown, "unknown"},
		{ErrorCategory(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.category.String(); got != tt.want {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", tt.category, got, tt.want)
		}
	}
}

func TestBuildFramerateCaps(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		fps    float64
		want   string
	}{
		{
			name:  "integer rate",
			width: 1280, height: 720, fps: 5.0,
			want: "video/x-raw,format=RGB,width=1280,height=720,framerate=5/1",
		},
		{
			name:  "fractional rate",
			width: 910, height: 512, fps: 0.5,
			want: "video/x-raw,format=RGB,width=910,height=512,framerate=1/2",
		},
		{
			name:  "one hertz",
			width: 1920, height: 1080, fps: 1.0,
			want: "video/x-raw,format=RGB,width=1920,height=1080,framerate=1/1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildFramerateCaps(tt.width, tt.height, tt.fps); got != tt.want {
				t.Errorf("buildFramerateCaps() = %q, want %q", got, tt.want)
			}
		})
	}
}
