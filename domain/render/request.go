package render

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DefaultSymbol is used when a request does not name a stock symbol
const DefaultSymbol = "UNKNOWN"

// Scene is one narrated still image in the final video
type Scene struct {
	SceneNumber int    `json:"scene_number"`
	Script      string `json:"script"`
	ImageBase64 string `json:"image_base64"`
}

// Request is the body n8n posts to /render
type Request struct {
	StockSymbol string         `json:"stock_symbol"`
	TradeSetup  map[string]any `json:"trade_setup"`
	Data        []Scene        `json:"data"`
	OutputName  *string        `json:"output_name,omitempty"`
	ReturnFile  bool           `json:"return_file"`
	CallbackURL string         `json:"callback_url,omitempty"`
}

// Normalize fills in defaults for optional fields
func (r *Request) Normalize() {
	r.StockSymbol = strings.TrimSpace(r.StockSymbol)
	if r.StockSymbol == "" {
		r.StockSymbol = DefaultSymbol
	}
	if r.TradeSetup == nil {
		r.TradeSetup = map[string]any{}
	}
}

// Validate checks the scenes. An empty scene list is reported separately
// from malformed scenes because the API maps them to different statuses.
func (r *Request) Validate() error {
	if len(r.Data) == 0 {
		return ErrEmptyData
	}

	seen := make(map[int]bool, len(r.Data))
	for i, s := range r.Data {
		if s.SceneNumber < 1 {
			return fmt.Errorf("%w: data[%d].scene_number must be >= 1", ErrInvalidScene, i)
		}
		if strings.TrimSpace(s.Script) == "" {
			return fmt.Errorf("%w: data[%d].script is required", ErrInvalidScene, i)
		}
		if strings.TrimSpace(s.ImageBase64) == "" {
			return fmt.Errorf("%w: data[%d].image_base64 is required", ErrInvalidScene, i)
		}
		if seen[s.SceneNumber] {
			return fmt.Errorf("%w: scene_number %d", ErrDuplicateScene, s.SceneNumber)
		}
		seen[s.SceneNumber] = true
	}

	return nil
}

// SortedScenes returns the scenes ordered by scene number
func (r *Request) SortedScenes() []Scene {
	scenes := make([]Scene, len(r.Data))
	copy(scenes, r.Data)
	sort.SliceStable(scenes, func(i, j int) bool {
		return scenes[i].SceneNumber < scenes[j].SceneNumber
	})
	return scenes
}

// unsafeNameChars matches anything that should not appear in an object name
var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeName makes a user supplied value safe to use as a file name
func SanitizeName(name string) string {
	name = unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.Trim(name, ".")
	if name == "" {
		return DefaultSymbol
	}
	return name
}

// OutputFilename returns <base>_<suffix>.mp4 where base is the output name
// when one was requested and the stock symbol otherwise
func (r *Request) OutputFilename(suffix string) string {
	base := r.StockSymbol
	if r.OutputName != nil && strings.TrimSpace(*r.OutputName) != "" {
		base = strings.TrimSuffix(strings.TrimSpace(*r.OutputName), ".mp4")
	}
	return fmt.Sprintf("%s_%s.mp4", SanitizeName(base), suffix)
}

// NewSuffix returns a short random hex suffix for output filenames
func NewSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// DecodeImage decodes a scene image, accepting both bare base64 and data URLs
func DecodeImage(b64 string) ([]byte, error) {
	s := strings.TrimSpace(b64)
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, fmt.Errorf("%w: malformed data URL", ErrInvalidImage)
		}
		s = s[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some producers strip padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	return data, nil
}
