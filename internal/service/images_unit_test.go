//go:build unit

package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"valour-site/internal/data"
	"valour-site/internal/logger"
	"valour-site/internal/richtext"
	"valour-site/internal/storage"
)

type mockUploader struct {
	err   error
	names []string
}

func (m *mockUploader) UploadImage(ctx context.Context, filename, contentType string, body io.Reader) (storage.Object, error) {
	m.names = append(m.names, filename)
	if m.err != nil {
		return storage.Object{}, m.err
	}
	return storage.Object{Bucket: storage.BucketImages, Name: filename, URL: "/uploads/images/" + filename}, nil
}

func newImageService(up *mockUploader) (*ImageService, *mockGateway[data.RichTextImage]) {
	gw := &mockGateway[data.RichTextImage]{}
	s := NewImageService(gw, up, logger.Nop())
	n := 0
	s.newID = func() string {
		n++
		return "img-" + string(rune('0'+n))
	}
	return s, gw
}

func TestImageService_UploadFailureLeavesDocument(t *testing.T) {
	s, gw := newImageService(&mockUploader{err: errors.New("bucket unreachable")})
	doc := "<p>Intro</p>"

	out, err := s.Upload(context.Background(), doc, 0, "a.png", "image/png", strings.NewReader("png"), richtext.DefaultOptions())
	if err == nil {
		t.Fatal("expected an error")
	}
	if out != doc {
		t.Errorf("document changed: %q", out)
	}
	if len(gw.inserted) != 0 {
		t.Error("options stored for a failed upload")
	}
}

func TestImageService_UploadInsertsAndStoresOptions(t *testing.T) {
	s, gw := newImageService(&mockUploader{})

	out, err := s.Upload(context.Background(), "<p>Intro</p>", -1, "a.png", "image/png", strings.NewReader("png"),
		richtext.ImageOptions{Alignment: richtext.AlignRight, Width: richtext.WidthSmall, Caption: "Day one"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.Contains(out, `data-image-id="img-1"`) || !strings.Contains(out, "/uploads/images/a.png") {
		t.Errorf("image not inserted: %s", out)
	}
	if len(gw.inserted) != 1 || gw.inserted[0].Alignment != richtext.AlignRight || gw.inserted[0].Caption != "Day one" {
		t.Errorf("unexpected stored options %+v", gw.inserted)
	}
}

func TestImageService_UpdateUsesStoredURL(t *testing.T) {
	s, gw := newImageService(&mockUploader{})
	doc, err := s.Insert(context.Background(), "<p>a</p>", -1, "/uploads/images/x.png", richtext.DefaultOptions())
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	out, err := s.Update(context.Background(), doc, "img-1", richtext.ImageOptions{Alignment: richtext.AlignCenter, Width: richtext.WidthFull, Border: true})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !strings.Contains(out, "/uploads/images/x.png") || !strings.Contains(out, "3px solid") {
		t.Errorf("unexpected output %s", out)
	}
	if gw.rows[0].Width != richtext.WidthFull || !gw.rows[0].Border {
		t.Errorf("stored options not updated: %+v", gw.rows[0])
	}

	if _, err := s.Update(context.Background(), doc, "img-1", richtext.ImageOptions{Width: "huge"}); !IsImageInputError(err) {
		t.Errorf("expected an input error, got %v", err)
	}
}

func TestImageService_ListPrefersStoredOptions(t *testing.T) {
	s, gw := newImageService(&mockUploader{})
	legacy := `<p><img class="editable-image" src="old.png" style="max-width: 200px; float: left;"></p>`

	doc, imgs, err := s.List(context.Background(), legacy)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(imgs) != 1 || imgs[0].ID != "img-1" || imgs[0].Options.Alignment != richtext.AlignLeft {
		t.Fatalf("unexpected images %+v", imgs)
	}
	if len(gw.inserted) != 1 {
		t.Errorf("adopted image not stored")
	}

	gw.rows[0].Caption = "Stored caption"
	_, imgs, err = s.List(context.Background(), doc)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if imgs[0].Options.Caption != "Stored caption" {
		t.Errorf("stored options ignored: %+v", imgs[0].Options)
	}
}

func TestImageService_Remove(t *testing.T) {
	s, gw := newImageService(&mockUploader{})
	doc, _ := s.Insert(context.Background(), "<p>a</p>", -1, "x.png", richtext.DefaultOptions())

	out, err := s.Remove(context.Background(), doc, "img-1")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if out != "<p>a</p>" || len(gw.rows) != 0 {
		t.Errorf("out = %q, rows = %d", out, len(gw.rows))
	}
}
