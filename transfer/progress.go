package transfer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/types"
)

// PollProgress queries the processing status once. A 404 is reported as
// *NotFoundError, every other failure as *TransportError.
func (c *Client) PollProgress(ctx context.Context, sessionId string) (*types.ProgressSnapshot, error) {
	url := tool.BuildProgressURL(c.base, sessionId)
	req, err := tool.NewHTTPReqWithApplication(http.NewRequestWithContext(ctx, http.MethodGet, url, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create progress request: %w", err)
	}

	resp, err := c.do(ctx, req, "progress")
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	body := readBody(resp)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{SessionID: sessionId}
	case !isSuccess(resp.StatusCode):
		return nil, errorFromResponse(resp, body, "Error checking progress")
	}

	var snapshot types.ProgressSnapshot
	if err := sonic.Unmarshal(body, &snapshot); err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to parse progress response: %v", err)}
	}
	tool.DefaultLogger.Debugf("[Progress] session=%s current=%d total=%d progress=%.1f", sessionId, snapshot.Current, snapshot.Total, snapshot.ServerPercent)
	return &snapshot, nil
}
