// cmd/leafd/main_test.go
package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writePNG(t *testing.T, dir string, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, "leaf.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLabelsCommand(t *testing.T) {
	out, err := runCmd(t, "labels", "smooth")
	if err != nil {
		t.Fatalf("labels failed: %v", err)
	}
	for _, want := range []string{"smooth", "Alternaria", "Mosaic Virus", "Others"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Downy Mildew") {
		t.Errorf("Sponge labels printed for smooth:\n%s", out)
	}
}

func TestLabelsCommandInfoFile(t *testing.T) {
	dir := t.TempDir()
	info := filepath.Join(dir, "info.yaml")
	os.WriteFile(info, []byte("diseases:\n  - name: Insect\n    info: Chewed by beetles.\n"), 0o644)

	out, err := runCmd(t, "labels", "sponge", "--disease-info-file", info)
	if err != nil {
		t.Fatalf("labels failed: %v", err)
	}
	if !strings.Contains(out, "Chewed by beetles.") {
		t.Errorf("Expected overridden info text:\n%s", out)
	}
}

func TestLabelsCommandRejectsUnknownCategory(t *testing.T) {
	if _, err := runCmd(t, "labels", "woven"); err == nil {
		t.Fatal("Expected error for unknown category")
	}
}

func TestPredictCommandWithMock(t *testing.T) {
	img := writePNG(t, t.TempDir(), color.RGBA{R: 20, G: 190, B: 30, A: 255})

	out, err := runCmd(t, "predict", "--use-mock-inference", "--json", "-c", "sponge", img)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	var res struct {
		Image string `json:"image"`
		Label string `json:"class_label"`
		Info  string `json:"info_text"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("Failed to decode output %q: %v", out, err)
	}
	if res.Image != img || res.Label != "Fresh" {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestPredictCommandUndecodableImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaf.jpg")
	os.WriteFile(path, []byte("not an image"), 0o644)

	if _, err := runCmd(t, "predict", "--use-mock-inference", path); err == nil {
		t.Fatal("Expected error for undecodable image")
	}
}
