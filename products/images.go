package products

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"trendaryo/apperr"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ThumbnailWidth = 300
	MaxImageSize   = 5 << 20
)

// ImageStore writes product images and their thumbnails below Dir and
// serves them under URLPrefix.
type ImageStore struct {
	Dir       string
	URLPrefix string
}

func NewImageStore(dir string) *ImageStore {
	return &ImageStore{Dir: filepath.Join(dir, "products"), URLPrefix: "/uploads/products"}
}

type SavedImage struct {
	URL          string
	ThumbnailURL string
}

// Save decodes src and writes a JPEG original plus a thumbnail scaled to
// ThumbnailWidth.
func (s *ImageStore) Save(src io.Reader) (SavedImage, error) {
	img, err := imaging.Decode(io.LimitReader(src, MaxImageSize), imaging.AutoOrientation(true))
	if err != nil {
		return SavedImage{}, apperr.Validation("please upload a valid image file")
	}

	name := uuid.New().String() + ".jpg"
	thumbDir := filepath.Join(s.Dir, "thumb")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return SavedImage{}, fmt.Errorf("create upload directory: %w", err)
	}
	if err := imaging.Save(img, filepath.Join(s.Dir, name)); err != nil {
		return SavedImage{}, fmt.Errorf("save original image: %w", err)
	}
	thumb := imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, name)); err != nil {
		return SavedImage{}, fmt.Errorf("save thumbnail: %w", err)
	}
	return SavedImage{
		URL:          path.Join(s.URLPrefix, name),
		ThumbnailURL: path.Join(s.URLPrefix, "thumb", name),
	}, nil
}

// Remove deletes a stored image and its thumbnail. URLs outside the store
// are ignored.
func (s *ImageStore) Remove(url string) {
	name, ok := strings.CutPrefix(url, s.URLPrefix+"/")
	if !ok || strings.Contains(name, "/") {
		return
	}
	for _, p := range []string{filepath.Join(s.Dir, name), filepath.Join(s.Dir, "thumb", name)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", p).Msg("remove product image")
		}
	}
}
