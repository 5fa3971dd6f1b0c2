package services

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/afterposten/backend/internal/models"
	"github.com/disintegration/imaging"
)

// inspectAsset decodes the image at path, checks it matches the declared asset
// type and records its dimensions in meta. Keys already in meta win.
func inspectAsset(path, assetType, meta string) (string, error) {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return "", fmt.Errorf("%w: unsupported image extension %q", ErrInvalidInput, filepath.Ext(path))
	}
	if format != assetFormat(assetType) {
		return "", fmt.Errorf("%w: asset type %s does not match file %s", ErrInvalidInput, assetType, filepath.Base(path))
	}

	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: cannot read image: %v", ErrInvalidInput, err)
	}
	bounds := img.Bounds()

	fields := map[string]interface{}{}
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &fields); err != nil {
			return "", fmt.Errorf("%w: metaJson must be a JSON object", ErrInvalidInput)
		}
	}
	if _, ok := fields["width"]; !ok {
		fields["width"] = bounds.Dx()
	}
	if _, ok := fields["height"]; !ok {
		fields["height"] = bounds.Dy()
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func assetFormat(assetType string) imaging.Format {
	if assetType == models.AssetTypePNG {
		return imaging.PNG
	}
	return imaging.JPEG
}
