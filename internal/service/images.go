package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"valour-site/internal/data"
	"valour-site/internal/logger"
	"valour-site/internal/richtext"
	"valour-site/internal/storage"
)

// ErrUploadFailed wraps errors from the object store.
var ErrUploadFailed = errors.New("failed to upload image")

// ImageUploader stores an image and returns where it is served from.
type ImageUploader interface {
	UploadImage(ctx context.Context, filename, contentType string, body io.Reader) (storage.Object, error)
}

// ImageService edits images embedded in rich-text documents. Presentation is
// kept in rich_text_images keyed by the node's data-image-id; the markup is
// only trusted when no stored row exists.
type ImageService struct {
	images   Gateway[data.RichTextImage]
	uploader ImageUploader
	log      logger.Logger
	newID    func() string
}

// NewImageService creates an ImageService.
func NewImageService(images Gateway[data.RichTextImage], uploader ImageUploader, log logger.Logger) *ImageService {
	return &ImageService{images: images, uploader: uploader, log: log, newID: uuid.NewString}
}

// Upload stores the file and inserts it into doc before block pos. On any
// failure doc is returned unchanged with the error.
func (s *ImageService) Upload(ctx context.Context, doc string, pos int, filename, contentType string, body io.Reader, opts richtext.ImageOptions) (string, error) {
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return doc, err
	}
	obj, err := s.uploader.UploadImage(ctx, filename, contentType, body)
	if err != nil {
		s.log.Error(err, "Failed to upload rich text image")
		return doc, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return s.Insert(ctx, doc, pos, obj.URL, opts)
}

// Insert places an already stored image into doc before block pos.
func (s *ImageService) Insert(ctx context.Context, doc string, pos int, url string, opts richtext.ImageOptions) (string, error) {
	opts = opts.Normalize()
	img := richtext.Image{ID: s.newID(), URL: url, Options: opts}
	out, err := richtext.Insert(doc, pos, img)
	if err != nil {
		return doc, err
	}
	if err := s.images.Insert(ctx, toRow(img)); err != nil {
		s.log.Error(err, "Failed to store rich text image options")
		return doc, err
	}
	return out, nil
}

// Update re-renders the image carrying id with new options at the same position.
func (s *ImageService) Update(ctx context.Context, doc, id string, opts richtext.ImageOptions) (string, error) {
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return doc, err
	}
	current, err := s.lookup(ctx, doc, id)
	if err != nil {
		return doc, err
	}
	img := richtext.Image{ID: id, URL: current.URL, Options: opts}
	out, err := richtext.Replace(doc, id, img)
	if err != nil {
		return doc, err
	}
	if err := s.save(ctx, img); err != nil {
		return doc, err
	}
	return out, nil
}

// Remove deletes the image carrying id from doc along with its stored options.
func (s *ImageService) Remove(ctx context.Context, doc, id string) (string, error) {
	out, err := richtext.Remove(doc, id)
	if err != nil {
		return doc, err
	}
	if _, err := s.images.Delete(ctx, data.ByID(id)); err != nil {
		s.log.Error(err, "Failed to delete rich text image options")
		return doc, err
	}
	return out, nil
}

// List returns the images in doc with their stored options. Images written
// before ids existed are adopted first, so the returned doc may differ from
// the input.
func (s *ImageService) List(ctx context.Context, doc string) (string, []richtext.Image, error) {
	doc, adopted, err := richtext.Adopt(doc, s.newID)
	if err != nil {
		return doc, nil, err
	}
	for _, img := range adopted {
		if err := s.images.Insert(ctx, toRow(img)); err != nil {
			s.log.Error(err, "Failed to store adopted image options")
			return doc, nil, err
		}
	}
	imgs, err := richtext.Images(doc)
	if err != nil {
		return doc, nil, err
	}
	for i := range imgs {
		row, err := s.images.First(ctx, data.ByID(imgs[i].ID))
		if err != nil {
			return doc, nil, err
		}
		if row != nil {
			imgs[i].Options = fromRow(row).Options
		}
	}
	return doc, imgs, nil
}

// lookup finds the image by its stored row, falling back to the markup.
func (s *ImageService) lookup(ctx context.Context, doc, id string) (richtext.Image, error) {
	row, err := s.images.First(ctx, data.ByID(id))
	if err != nil {
		return richtext.Image{}, err
	}
	if row != nil {
		return fromRow(row), nil
	}
	imgs, err := richtext.Images(doc)
	if err != nil {
		return richtext.Image{}, err
	}
	for _, img := range imgs {
		if img.ID == id {
			return img, nil
		}
	}
	return richtext.Image{}, richtext.ErrImageNotFound
}

func (s *ImageService) save(ctx context.Context, img richtext.Image) error {
	row := toRow(img)
	n, err := s.images.Update(ctx, data.ByID(img.ID), data.Patch{
		"url":       row.URL,
		"alignment": row.Alignment,
		"width":     row.Width,
		"border":    row.Border,
		"caption":   row.Caption,
	})
	if err != nil {
		s.log.Error(err, "Failed to update rich text image options")
		return err
	}
	if n > 0 {
		return nil
	}
	existing, err := s.images.First(ctx, data.ByID(img.ID))
	if err != nil || existing != nil {
		return err
	}
	return s.images.Insert(ctx, row)
}

func toRow(img richtext.Image) *data.RichTextImage {
	return &data.RichTextImage{
		ID:        img.ID,
		URL:       img.URL,
		Alignment: img.Options.Alignment,
		Width:     img.Options.Width,
		Border:    img.Options.Border,
		Caption:   img.Options.Caption,
	}
}

func fromRow(r *data.RichTextImage) richtext.Image {
	return richtext.Image{
		ID:  r.ID,
		URL: r.URL,
		Options: richtext.ImageOptions{
			Alignment: r.Alignment,
			Width:     r.Width,
			Border:    r.Border,
			Caption:   r.Caption,
		},
	}
}

// IsImageInputError reports whether err came from bad options or an unknown id
// rather than a storage failure.
func IsImageInputError(err error) bool {
	return errors.Is(err, richtext.ErrInvalidOptions) || errors.Is(err, richtext.ErrImageNotFound)
}
