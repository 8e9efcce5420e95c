package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(y), G: 0, B: 0, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestInitializeIndexesAssets(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "ship.png"), 2, 3)
	if err := os.MkdirAll(filepath.Join(dir, "shaders"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "shaders", "sprite.wgsl"), []byte("// empty"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	defer am.Shutdown()
	if err := am.Initialize(dir, false); err != nil {
		t.Fatal(err)
	}

	if got := am.Assets(AssetTypeImage); len(got) != 1 || filepath.Base(got[0].Path) != "ship.png" {
		t.Fatalf("unexpected images %+v", got)
	}
	if got := am.Assets(AssetTypeShader); len(got) != 1 {
		t.Fatalf("unexpected shaders %+v", got)
	}

	tex, err := am.LoadTexture("ship.png")
	if err != nil {
		t.Fatal(err)
	}
	if tex.Name != "ship" || tex.Width != 2 || tex.Height != 3 || len(tex.Pixels) != 2*3*4 {
		t.Fatalf("unexpected texture %s %dx%d", tex.Name, tex.Width, tex.Height)
	}
	if tex.Pixels[2*4*2] != 2 {
		t.Fatalf("row 2 must carry red=2, got %d", tex.Pixels[2*4*2])
	}
}

func TestWatchReportsChanges(t *testing.T) {
	dir := t.TempDir()
	am, err := NewAssetManager()
	if err != nil {
		t.Fatal(err)
	}
	defer am.Shutdown()
	if err := am.Initialize(dir, true); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "glow.wgsl")
	if err := os.WriteFile(path, []byte("// v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-am.Changes():
		if c.Path != path || c.Type != AssetTypeShader || c.Removed {
			t.Fatalf("unexpected change %+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}
