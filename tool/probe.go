package tool

import (
	"fmt"
	"net/url"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// ProbeHost sends a single unprivileged ICMP echo to the server host.
// It only reports reachability; HTTP errors are still surfaced by the client.
func ProbeHost(serverURL *url.URL, timeout time.Duration) (time.Duration, error) {
	host := serverURL.Hostname()
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return 0, fmt.Errorf("failed to create pinger for %s: %w", host, err)
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(false)
	if err := pinger.Run(); err != nil {
		return 0, fmt.Errorf("failed to probe %s: %w", host, err)
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("host %s did not answer within %s", host, timeout)
	}
	DefaultLogger.Debugf("[Preflight] %s answered in %s", host, stats.AvgRtt)
	return stats.AvgRtt, nil
}
