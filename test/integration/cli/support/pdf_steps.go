package support

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/framescan/internal/testutil"
)

// aPDFWithPages builds a PDF with one symbol image per page. texts is a
// comma separated list of payloads.
func (testCtx *TestContext) aPDFWithPages(name, texts string) error {
	var imgs []string
	for i, text := range strings.Split(texts, ",") {
		img, err := testutil.GenerateScene(testutil.DefaultSceneConfig(strings.TrimSpace(text)))
		if err != nil {
			return err
		}
		p := testCtx.path(fmt.Sprintf("%s-page%d.png", name, i+1))
		if err := imaging.Save(img, p); err != nil {
			return err
		}
		imgs = append(imgs, p)
	}
	path := testCtx.path(name)
	if err := api.ImportImagesFile(imgs, path, nil, nil); err != nil {
		return fmt.Errorf("failed to build pdf: %w", err)
	}
	testCtx.Files[strings.TrimSuffix(name, filepath.Ext(name))] = path
	return nil
}

// anEncryptedPDF encrypts a symbol PDF with the given user password.
func (testCtx *TestContext) anEncryptedPDF(name, password string) error {
	if err := testCtx.aPDFWithPages(name, "SECRET-PAGE"); err != nil {
		return err
	}
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	path := testCtx.path(name)
	if err := api.EncryptFile(path, "", conf); err != nil {
		return fmt.Errorf("failed to encrypt pdf: %w", err)
	}
	return nil
}

// RegisterPDFSteps registers PDF fixture steps.
func (testCtx *TestContext) RegisterPDFSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a PDF "([^"]*)" with pages containing "([^"]*)"$`, testCtx.aPDFWithPages)
	sc.Step(`^a PDF "([^"]*)" encrypted with password "([^"]*)"$`, testCtx.anEncryptedPDF)
}
