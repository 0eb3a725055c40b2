package notify

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/docconvert-go/tool"
	"github.com/moyoez/docconvert-go/types"
)

// NotifyWriteChunkSize is the chunk size when writing payload to Unix socket (avoid large single write).
const NotifyWriteChunkSize = 32 * 1024 // 32KB

// UnixSocketTimeout is the timeout for Unix socket operations
var UnixSocketTimeout = 3 * time.Second

// SendNotification sends notification via Unix Domain Socket: a 4 byte
// little-endian length followed by the JSON payload. An {"error"} reply is
// returned as an error.
func SendNotification(notification *types.Notification, socketPath string) error {
	if socketPath == "" {
		return fmt.Errorf("no unix socket configured")
	}
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return fmt.Errorf("unix socket not found: %s", socketPath)
	}

	var payload []byte
	var err error
	if notification != nil {
		payload, err = sonic.Marshal(notification)
		if err != nil {
			return fmt.Errorf("failed to serialize notification data: %w", err)
		}
	} else {
		payload = []byte("{}")
	}
	if len(payload) > NotifyWriteChunkSize {
		return fmt.Errorf("notification payload too large: %d bytes (max %d)", len(payload), NotifyWriteChunkSize)
	}

	conn, err := net.DialTimeout("unix", socketPath, UnixSocketTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to Unix socket %s: %w", socketPath, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close Unix socket connection: %v", err)
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(UnixSocketTimeout)); err != nil {
		tool.DefaultLogger.Errorf("Failed to set deadline: %v", err)
	}

	lengthBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBuf, uint32(len(payload)))
	if _, err := conn.Write(lengthBuf); err != nil {
		return fmt.Errorf("failed to write length to Unix socket: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload to Unix socket: %w", err)
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read response from Unix socket: %w", err)
	}
	if n > 0 {
		var response map[string]any
		if err := sonic.Unmarshal(buf[:n], &response); err != nil {
			tool.DefaultLogger.Debugf("Unix socket response (raw): %s", string(buf[:n]))
		} else if errMsg, ok := response["error"].(string); ok && errMsg != "" {
			return fmt.Errorf("server returned error: %s", errMsg)
		}
	}

	if notification != nil {
		tool.DefaultLogger.Infof("[UnixSocket] Notification sent: %s - %s", notification.Type, notification.Title)
	}
	return nil
}

// BuildSessionNotification describes a terminal session for external listeners.
func BuildSessionNotification(snap types.Snapshot) *types.Notification {
	n := &types.Notification{
		Data: map[string]any{
			"localId":   snap.LocalID,
			"sessionId": snap.SessionID,
			"mode":      string(snap.Mode),
			"current":   snap.Progress.Current,
			"total":     snap.Progress.Total,
		},
	}
	switch snap.Status {
	case types.StatusCompleted:
		n.Type = types.NotifyTypeSessionCompleted
		n.Title = "Conversion Completed"
		n.Message = fmt.Sprintf("%d file(s) converted", snap.Progress.Total)
		n.Data["downloadUrl"] = snap.DownloadURL
	case types.StatusFailed:
		n.Type = types.NotifyTypeSessionFailed
		n.Title = "Conversion Failed"
		n.Message = snap.ErrorMessage
	default:
		n.Type = types.NotifyTypeSessionState
		n.Title = string(snap.Status)
	}
	return n
}

// SocketNotifier forwards terminal session states to a Unix socket listener.
type SocketNotifier struct {
	SocketPath string
}

func NewSocketNotifier(socketPath string) *SocketNotifier {
	return &SocketNotifier{SocketPath: socketPath}
}

func (n *SocketNotifier) OnStatusChange(snap types.Snapshot) {
	if !snap.Status.Terminal() {
		return
	}
	if err := SendNotification(BuildSessionNotification(snap), n.SocketPath); err != nil {
		tool.DefaultLogger.Warnf("[UnixSocket] %v", err)
	}
}

func (n *SocketNotifier) OnProgress(types.Snapshot) {}
func (n *SocketNotifier) OnError(types.Snapshot)    {}
