package transfer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/types"
)

// StartProcessing asks the server to begin converting the session. Success only
// means the request was accepted.
func (c *Client) StartProcessing(ctx context.Context, sessionId string, mode types.Mode, lang string) error {
	if sessionId == "" {
		return fmt.Errorf("invalid parameters: sessionId must not be empty")
	}
	url := tool.BuildProcessURL(c.base, sessionId, string(mode), lang)
	req, err := tool.NewHTTPReqWithApplication(http.NewRequestWithContext(ctx, http.MethodGet, url, nil))
	if err != nil {
		return fmt.Errorf("failed to create process request: %w", err)
	}

	resp, err := c.do(ctx, req, "process")
	if err != nil {
		return err
	}
	defer closeBody(resp)

	body := readBody(resp)
	if !isSuccess(resp.StatusCode) {
		return errorFromResponse(resp, body, "Processing failed to start")
	}
	tool.DefaultLogger.Infof("[Process] Processing accepted for session %s (mode=%s, lang=%s)", sessionId, mode, lang)
	return nil
}
