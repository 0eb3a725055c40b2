package transfer

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"

	"github.com/bytedance/sonic"

	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/types"
)

// Upload sends all files as one multipart request together with the mode and
// lang fields. Callers must make sure the selection is not empty.
func (c *Client) Upload(ctx context.Context, sel types.FileSelection) (*types.UploadResponse, error) {
	if len(sel.Files) == 0 {
		return nil, fmt.Errorf("invalid parameters: no files to upload")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(ctx, mw, sel))
	}()

	url := tool.BuildUploadURL(c.base)
	req, err := tool.NewHTTPReqWithApplication(http.NewRequestWithContext(ctx, http.MethodPost, url, pr))
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	tool.DefaultLogger.Infof("[Upload] Sending %d file(s) (%d bytes, mode=%s) to %s", len(sel.Files), sel.TotalSize(), sel.Mode, url)
	resp, err := c.do(ctx, req, "upload")
	if err != nil {
		pr.Close()
		return nil, err
	}
	defer closeBody(resp)

	body := readBody(resp)
	if !isSuccess(resp.StatusCode) {
		return nil, errorFromResponse(resp, body, "Upload failed")
	}

	var response types.UploadResponse
	if err := sonic.Unmarshal(body, &response); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to parse upload response: %v", err)}
	}
	if response.SessionID == "" {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "upload response missing session_id"}
	}
	tool.DefaultLogger.Infof("[Upload] Server accepted batch, session=%s", response.SessionID)
	return &response, nil
}

func writeMultipart(ctx context.Context, mw *multipart.Writer, sel types.FileSelection) error {
	for _, f := range sel.Files {
		if err := writeFilePart(ctx, mw, f); err != nil {
			return err
		}
	}
	if err := mw.WriteField("lang", sel.Language); err != nil {
		return err
	}
	if err := mw.WriteField("mode", string(sel.Mode)); err != nil {
		return err
	}
	return mw.Close()
}

func writeFilePart(ctx context.Context, mw *multipart.Writer, f types.FileEntry) error {
	src, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Path, err)
	}
	defer src.Close()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
	contentType := f.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := tool.CopyWithContext(ctx, part, src); err != nil {
		return fmt.Errorf("failed to stream %s: %w", f.Name, err)
	}
	return nil
}
