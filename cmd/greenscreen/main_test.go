package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/greenscreen/rimage"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run(append([]string{"greenscreen"}, args...))
	return out.String(), err
}

func TestPresets(t *testing.T) {
	out, err := runApp(t, "presets")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "fine (default)")
	test.That(t, out, test.ShouldContainSubstring, "coarse")
	test.That(t, out, test.ShouldContainSubstring, "64 px")
}

func writeRecording(t *testing.T, dir string) (depthPath, bodyPath, colorPath string) {
	t.Helper()
	depthFrame := rimage.NewEmptyDepthFrame(4, 2)
	for i := range depthFrame.Data {
		depthFrame.Data[i] = rimage.Depth(600 + i*100)
	}
	depthPath = filepath.Join(dir, "depth.dat.gz")
	test.That(t, depthFrame.WriteToFile(depthPath), test.ShouldBeNil)

	bodyFrame := rimage.NewEmptyBodyIndexFrame(4, 2)
	bodyFrame.Set(0, 0, 1)
	bodyFrame.Set(1, 0, 1)
	bodyFrame.Set(3, 1, 4)
	bodyPath = filepath.Join(dir, "body.png")
	test.That(t, rimage.WriteImageToFile(bodyPath, bodyFrame.ToImage()), test.ShouldBeNil)

	colorImg := rimage.NewBGRA(8, 4)
	for i := range colorImg.Pix {
		colorImg.Pix[i] = 0xff
	}
	colorPath = filepath.Join(dir, "color.png")
	test.That(t, rimage.WriteImageToFile(colorPath, colorImg.ToNRGBA()), test.ShouldBeNil)
	return depthPath, bodyPath, colorPath
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	depthPath, bodyPath, colorPath := writeRecording(t, dir)
	outPath := filepath.Join(dir, "out.png")
	previewPath := filepath.Join(dir, "preview.png")
	colorOutPath := filepath.Join(dir, "color.qoi")

	out, err := runApp(t, "render",
		"--depth", depthPath, "--body", bodyPath, "--color", colorPath,
		"--n", "2", "--m", "1",
		"--out", outPath, "--preview", previewPath, "--color-out", colorOutPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "TOTAL")
	test.That(t, out, test.ShouldContainSubstring, "resolution 2x1 average")

	img, err := rimage.ReadImageFromFile(outPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 4)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 2)

	preview, err := rimage.ReadImageFromFile(previewPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, preview.Bounds().Dx(), test.ShouldEqual, 8+8)
	test.That(t, preview.Bounds().Dy(), test.ShouldEqual, 4)

	_, err = os.Stat(colorOutPath)
	test.That(t, err, test.ShouldBeNil)

	t.Run("missing flags", func(t *testing.T) {
		_, err := runApp(t, "render", "--depth", depthPath)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("bad resolution", func(t *testing.T) {
		_, err := runApp(t, "render",
			"--depth", depthPath, "--body", bodyPath, "--color", colorPath,
			"--mode", "blur", "--out", outPath)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "blur")
	})
}

func TestDemo(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "pipeline.json")
	test.That(t, os.WriteFile(confPath, []byte(`{"preset": "coarse", "mode": "center"}`), 0o600), test.ShouldBeNil)
	outPath := filepath.Join(dir, "last.png")

	logPath := filepath.Join(dir, "demo.log")

	out, err := runApp(t, "--debug", "--log-file", logPath,
		"demo", "--frames", "3", "--fps", "1000", "--config", confPath, "--out", outPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "32x53 center")
	test.That(t, out, test.ShouldContainSubstring, "processed")

	img, err := rimage.ReadImageFromFile(outPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 512)

	logs, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(logs), test.ShouldBeGreaterThan, 0)

	test.That(t, os.WriteFile(confPath, []byte(`{"preset": "giant"}`), 0o600), test.ShouldBeNil)
	_, err = runApp(t, "demo", "--frames", "1", "--config", confPath)
	test.That(t, err, test.ShouldNotBeNil)
}
