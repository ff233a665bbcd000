package qboclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
)

// buildAttachmentBody assembles the upload body. Part names and ordering
// are the partner's contract: metadata first, content second.
func buildAttachmentBody(meta attachable, in dto.AttachmentUpload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Disposition", `form-data; name="file_metadata_01"`)
	metaHeader.Set("Content-Type", "application/json")
	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, "", err
	}

	contentHeader := textproto.MIMEHeader{}
	contentHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file_content_01"; filename="%s"`, in.FileName))
	contentHeader.Set("Content-Type", in.ContentType)
	contentPart, err := w.CreatePart(contentHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := contentPart.Write(in.Content); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
