package testutil

import (
	"encoding/json"

	"github.com/runixer/trendstudio/internal/openrouter"
	"github.com/runixer/trendstudio/internal/prompt"
)

// TestPNGDataURL is a 1x1 transparent PNG.
const TestPNGDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// TestSections returns scene, style and avoid sections with a placeholder in the scene.
func TestSections() []prompt.Section {
	return []prompt.Section{
		{ID: "s1", Label: "Scene", Content: "a {{gender}} astronaut on the moon", Enabled: true, Order: 0},
		{ID: "s2", Label: "Style", Content: `{"lighting": "rim light"}`, Enabled: true, Order: 1},
		{ID: "s3", Label: "Avoid", Content: "text, watermark", Enabled: true, Order: 2},
	}
}

// MockImageResponse returns a response carrying one image URL with debug
// bodies filled the way the real client fills them.
func MockImageResponse(imageURL string) openrouter.ImageResponse {
	raw := `{"id":"gen-test","model":"test-image-model","choices":[{"index":0,"message":{"role":"assistant","content":"","images":[{"type":"image_url","image_url":{"url":` +
		quote(imageURL) + `}}]}}],"usage":{"prompt_tokens":10,"completion_tokens":1290,"total_tokens":1300}}`

	var resp openrouter.ImageResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		panic(err)
	}
	resp.DebugRequestBody = `{"model":"test-image-model"}`
	resp.DebugResponseBody = raw
	return resp
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
