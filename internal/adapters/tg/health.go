package tg

import (
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/larriantoniy/dateregbot/internal/ports"
)

const (
	dialTimeout  = 3 * time.Second
	proxyTimeout = 5 * time.Second
)

type dialFunc func(network, addr string, timeout time.Duration) (net.Conn, error)

// dialCheck пробует TCP-соединение и сообщает, удалось ли
func dialCheck(dial dialFunc, network, addr string, timeout time.Duration) error {
	conn, err := dial(network, addr, timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

// checkConnectivity логирует доступность IPv4/IPv6 и прокси. Ничего не блокирует.
func checkConnectivity(logger *slog.Logger, proxyCfg *ports.ProxyConfig) {
	checkNetworks(logger, net.DialTimeout)
	checkProxy(logger, net.DialTimeout, proxyCfg)
}

func checkNetworks(logger *slog.Logger, dial dialFunc) {
	targets := []struct{ network, addr string }{
		{"tcp4", "8.8.8.8:53"},
		{"tcp6", "[2606:4700:4700::1111]:53"},
	}
	for _, tgt := range targets {
		if err := dialCheck(dial, tgt.network, tgt.addr, dialTimeout); err != nil {
			logger.Warn("network seems not working", "network", tgt.network, "error", err)
			continue
		}
		logger.Info("network OK", "network", tgt.network)
	}
}

// proxyCandidates порядок попыток: литерал IP - только его семейство,
// hostname - сначала IPv6, потом IPv4
func proxyCandidates(host string) []string {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			return []string{"tcp4"}
		}
		return []string{"tcp6"}
	}
	return []string{"tcp6", "tcp4"}
}

func checkProxy(logger *slog.Logger, dial dialFunc, proxyCfg *ports.ProxyConfig) bool {
	if proxyCfg == nil || !proxyCfg.Enabled {
		logger.Info("proxy disabled, skipping check")
		return false
	}

	addr := net.JoinHostPort(proxyCfg.Server, strconv.Itoa(int(proxyCfg.Port)))
	for _, network := range proxyCandidates(proxyCfg.Server) {
		if err := dialCheck(dial, network, addr, proxyTimeout); err != nil {
			logger.Warn("proxy unreachable", "network", network, "addr", addr, "error", err)
			continue
		}
		logger.Info("proxy reachable", "network", network, "addr", addr)
		return true
	}

	logger.Error("proxy unreachable on all networks", "addr", addr)
	return false
}
