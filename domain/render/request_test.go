package render

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"testing"
)

func validScene(n int) Scene {
	return Scene{
		SceneNumber: n,
		Script:      "ราคาหุ้นวันนี้",
		ImageBase64: base64.StdEncoding.EncodeToString([]byte("png-bytes")),
	}
}

func TestRequest_Normalize(t *testing.T) {
	req := Request{StockSymbol: "  "}
	req.Normalize()

	if req.StockSymbol != DefaultSymbol {
		t.Errorf("StockSymbol = %q, want %q", req.StockSymbol, DefaultSymbol)
	}
	if req.TradeSetup == nil {
		t.Error("TradeSetup should default to an empty map")
	}

	req = Request{StockSymbol: " PTT ", TradeSetup: map[string]any{"entry": 34.5}}
	req.Normalize()
	if req.StockSymbol != "PTT" {
		t.Errorf("StockSymbol = %q, want %q", req.StockSymbol, "PTT")
	}
	if req.TradeSetup["entry"] != 34.5 {
		t.Errorf("TradeSetup should be preserved, got %v", req.TradeSetup)
	}
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		data    []Scene
		wantErr error
		errMsg  string
	}{
		{
			name: "single valid scene",
			data: []Scene{validScene(1)},
		},
		{
			name: "multiple valid scenes out of order",
			data: []Scene{validScene(3), validScene(1), validScene(2)},
		},
		{
			name:    "nil data",
			data:    nil,
			wantErr: ErrEmptyData,
		},
		{
			name:    "empty data",
			data:    []Scene{},
			wantErr: ErrEmptyData,
		},
		{
			name:    "scene number zero",
			data:    []Scene{{SceneNumber: 0, Script: "x", ImageBase64: "eA=="}},
			wantErr: ErrInvalidScene,
			errMsg:  "data[0].scene_number must be >= 1",
		},
		{
			name:    "negative scene number",
			data:    []Scene{validScene(1), {SceneNumber: -2, Script: "x", ImageBase64: "eA=="}},
			wantErr: ErrInvalidScene,
			errMsg:  "data[1].scene_number",
		},
		{
			name:    "blank script",
			data:    []Scene{{SceneNumber: 1, Script: "   ", ImageBase64: "eA=="}},
			wantErr: ErrInvalidScene,
			errMsg:  "script is required",
		},
		{
			name:    "missing image",
			data:    []Scene{{SceneNumber: 1, Script: "hello"}},
			wantErr: ErrInvalidScene,
			errMsg:  "image_base64 is required",
		},
		{
			name:    "duplicate scene numbers",
			data:    []Scene{validScene(1), validScene(2), validScene(1)},
			wantErr: ErrDuplicateScene,
			errMsg:  "scene_number 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{Data: tt.data}
			err := req.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestRequest_SortedScenes(t *testing.T) {
	req := Request{Data: []Scene{validScene(3), validScene(1), validScene(2)}}

	got := req.SortedScenes()

	for i, want := range []int{1, 2, 3} {
		if got[i].SceneNumber != want {
			t.Errorf("SortedScenes()[%d].SceneNumber = %d, want %d", i, got[i].SceneNumber, want)
		}
	}
	if req.Data[0].SceneNumber != 3 {
		t.Error("SortedScenes() must not reorder the request in place")
	}
}

func TestRequest_OutputFilename(t *testing.T) {
	name := func(s string) *string { return &s }

	tests := []struct {
		name       string
		symbol     string
		outputName *string
		want       string
	}{
		{"symbol", "AAPL", nil, "AAPL_abc123.mp4"},
		{"default symbol", DefaultSymbol, nil, "UNKNOWN_abc123.mp4"},
		{"output name wins", "AAPL", name("weekly-recap"), "weekly-recap_abc123.mp4"},
		{"output name with extension", "AAPL", name("recap.mp4"), "recap_abc123.mp4"},
		{"blank output name falls back", "AAPL", name("  "), "AAPL_abc123.mp4"},
		{"path traversal is neutralised", "../../etc/passwd", nil, "_.._etc_passwd_abc123.mp4"},
		{"thai symbol", "ปตท", nil, "____abc123.mp4"},
		{"dots only", "...", nil, "UNKNOWN_abc123.mp4"},
		{"set symbol", "SET:PTT", nil, "SET_PTT_abc123.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{StockSymbol: tt.symbol, OutputName: tt.outputName}
			if got := req.OutputFilename("abc123"); got != tt.want {
				t.Errorf("OutputFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewSuffix(t *testing.T) {
	hex6 := regexp.MustCompile(`^[0-9a-f]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		s := NewSuffix()
		if !hex6.MatchString(s) {
			t.Fatalf("NewSuffix() = %q, want 6 lowercase hex chars", s)
		}
		seen[s] = true
	}
	if len(seen) < 2 {
		t.Error("NewSuffix() should be random")
	}
}

func TestDecodeImage(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	std := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{"standard base64", std, raw, false},
		{"data URL", "data:image/png;base64," + std, raw, false},
		{"surrounding whitespace", "  " + std + "\n", raw, false},
		{"unpadded", strings.TrimRight(base64.StdEncoding.EncodeToString([]byte("ab")), "="), []byte("ab"), false},
		{"not base64", "!!!not-base64!!!", nil, true},
		{"data URL without comma", "data:image/png;base64", nil, true},
		{"empty", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeImage(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidImage) {
					t.Fatalf("DecodeImage() error = %v, want ErrInvalidImage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeImage() unexpected error: %v", err)
			}
			if string(got) != string(tt.want) {
				t.Errorf("DecodeImage() = %v, want %v", got, tt.want)
			}
		})
	}
}
