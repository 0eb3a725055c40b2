package transfer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/moyoez/docconvert-go/tool"
)

// Cleanup asks the server to delete everything it holds for the session.
// It blocks until the response arrives or ctx ends; callers treat it as best effort.
func (c *Client) Cleanup(ctx context.Context, sessionId string) error {
	if sessionId == "" {
		return fmt.Errorf("invalid parameters: sessionId must not be empty")
	}
	url := tool.BuildCleanupURL(c.base, sessionId)
	req, err := tool.NewHTTPReqWithApplication(http.NewRequestWithContext(ctx, http.MethodDelete, url, nil))
	if err != nil {
		return fmt.Errorf("failed to create cleanup request: %w", err)
	}

	resp, err := c.do(ctx, req, "cleanup")
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if !isSuccess(resp.StatusCode) {
		return &TransportError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("cleanup request failed: %s", resp.Status)}
	}
	tool.DefaultLogger.Infof("[Cleanup] Cleanup request sent successfully to %s", url)
	return nil
}
