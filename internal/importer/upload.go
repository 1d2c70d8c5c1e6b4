package importer

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"shipconf/internal/document"
	"shipconf/internal/services"
	"shipconf/internal/services/acumatica"
)

const packingSlipPrefix = "PackingSlip-"

// Submitter issues requests on an authenticated session.
type Submitter interface {
	Submit(ctx context.Context, method, relPath string, jsonBody any, binaryBody []byte) (*acumatica.Response, error)
}

// UploadPath builds the attachment path for a document:
// <shipmentURL><id>/files/PackingSlip-<id>-<fileName>.
func UploadPath(shipmentURL, shipmentID, fileName string) (string, error) {
	if strings.TrimSpace(shipmentID) == "" {
		return "", services.Wrap(services.ErrResolution, "upload", "path", "empty shipment identifier", nil)
	}
	if strings.TrimSpace(fileName) == "" {
		return "", errors.New("upload path: empty file name")
	}
	var b strings.Builder
	b.WriteString(shipmentURL)
	b.WriteString(url.PathEscape(shipmentID))
	b.WriteString("/files/")
	b.WriteString(url.PathEscape(packingSlipPrefix + shipmentID + "-" + fileName))
	return b.String(), nil
}

// Uploader attaches documents to shipments.
type Uploader struct {
	session     Submitter
	shipmentURL string
}

// NewUploader returns an uploader that PUTs under shipmentURL.
func NewUploader(session Submitter, shipmentURL string) *Uploader {
	return &Uploader{session: session, shipmentURL: shipmentURL}
}

// Upload PUTs the raw document bytes to the shipment's files collection. Any
// response the session client does not report as an error counts as uploaded.
func (u *Uploader) Upload(ctx context.Context, shipmentID string, doc document.Document) error {
	path, err := UploadPath(u.shipmentURL, shipmentID, doc.Name)
	if err != nil {
		return err
	}
	content, err := doc.Content()
	if err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	if _, err := u.session.Submit(ctx, http.MethodPut, path, nil, content); err != nil {
		return err
	}
	return nil
}
