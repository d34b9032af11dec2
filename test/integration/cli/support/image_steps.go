package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/framescan/internal/frame"
	"github.com/MeKo-Tech/framescan/internal/testutil"
)

// anImageContaining renders a symbol scene into an image fixture. The image
// format follows the extension of name.
func (testCtx *TestContext) anImageContaining(name, text string) error {
	img, err := testutil.GenerateScene(testutil.DefaultSceneConfig(text))
	if err != nil {
		return err
	}
	path := testCtx.path(name)
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	testCtx.Files[strings.TrimSuffix(name, filepath.Ext(name))] = path
	return nil
}

// anImageWithoutSymbol writes a noise image fixture.
func (testCtx *TestContext) anImageWithoutSymbol(name string) error {
	path := testCtx.path(name)
	if err := imaging.Save(testutil.NoiseImage(testutil.SmallSize, 11), path); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	testCtx.Files[strings.TrimSuffix(name, filepath.Ext(name))] = path
	return nil
}

// aFrameContaining dumps a symbol frame as a raw file whose name carries the
// geometry; {name} refers to it in commands.
func (testCtx *TestContext) aFrameContaining(layout, name, text string) error {
	l, err := frame.ParseLayout(layout)
	if err != nil {
		return err
	}
	img, err := testutil.GenerateScene(testutil.DefaultSceneConfig(text))
	if err != nil {
		return err
	}
	f, err := frame.FromImage(img, frame.SynthOptions{Layout: l})
	if err != nil {
		return err
	}
	return testCtx.writeFrame(name, f, l)
}

// aFrameWithoutSymbol dumps a noise frame.
func (testCtx *TestContext) aFrameWithoutSymbol(layout, name string) error {
	l, err := frame.ParseLayout(layout)
	if err != nil {
		return err
	}
	f, err := frame.FromImage(testutil.NoiseImage(testutil.SmallSize, 7), frame.SynthOptions{Layout: l})
	if err != nil {
		return err
	}
	return testCtx.writeFrame(name, f, l)
}

func (testCtx *TestContext) writeFrame(name string, f *frame.Frame, layout frame.Layout) error {
	raw, err := frame.Bytes(f)
	if err != nil {
		return err
	}
	path := testCtx.path(frame.RawName(name, frame.RawSpec{Width: f.Width, Height: f.Height, Layout: layout}))
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	testCtx.Files[name] = path
	return nil
}

// aTruncatedFrame writes a dump that is shorter than its name promises.
func (testCtx *TestContext) aTruncatedFrame(name string) error {
	path := testCtx.path(name + "_640x480.nv21")
	if err := os.WriteFile(path, make([]byte, 640*480), 0o600); err != nil {
		return err
	}
	testCtx.Files[name] = path
	return nil
}

// RegisterImageSteps registers image and frame fixture steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an image "([^"]*)" containing "([^"]*)"$`, testCtx.anImageContaining)
	sc.Step(`^an image "([^"]*)" without a symbol$`, testCtx.anImageWithoutSymbol)
	sc.Step(`^an? (nv21|nv12|i420) frame "([^"]*)" containing "([^"]*)"$`, testCtx.aFrameContaining)
	sc.Step(`^an? (nv21|nv12|i420) frame "([^"]*)" without a symbol$`, testCtx.aFrameWithoutSymbol)
	sc.Step(`^a truncated frame "([^"]*)"$`, testCtx.aTruncatedFrame)
}
