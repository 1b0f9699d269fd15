package gui

import (
	"context"
	"strings"

	"detectview/internal/errors"
	"detectview/internal/media"
	"detectview/internal/picker"
	"detectview/pkg/types"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

// DialogGateway picks an image through the fyne file dialog. The dialog
// opens one file at a time, so every selection holds at most one image.
type DialogGateway struct {
	window fyne.Window
}

var _ picker.Gateway = (*DialogGateway)(nil)

// NewDialogGateway creates a gateway showing its dialog over window.
func NewDialogGateway(window fyne.Window) *DialogGateway {
	return &DialogGateway{window: window}
}

type dialogResult struct {
	img types.SelectedImage
	err error
}

// RequestImages implements picker.Gateway.
func (g *DialogGateway) RequestImages(ctx context.Context, limit picker.Limit) ([]types.SelectedImage, error) {
	done := make(chan dialogResult, 1)

	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			done <- dialogResult{err: errors.NewSelectionError("cannot open media library", errors.PermissionDenied, err)}
			return
		}
		if reader == nil {
			done <- dialogResult{err: errors.ErrCancelled}
			return
		}
		defer reader.Close()
		done <- dialogResult{img: describeURI(reader.URI())}
	}, g.window)
	d.SetFilter(storage.NewExtensionFileFilter(media.Extensions()))
	d.Show()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return []types.SelectedImage{res.img}, nil
	case <-ctx.Done():
		d.Hide()
		return nil, errors.ErrCancelled
	}
}

func describeURI(u fyne.URI) types.SelectedImage {
	mimeType := u.MimeType()
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = ""
	}
	return types.SelectedImage{
		URI:      u.String(),
		FileName: u.Name(),
		MimeType: mimeType,
	}
}
