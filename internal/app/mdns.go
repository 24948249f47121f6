package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/grandcat/zeroconf"
)

const (
	mdnsServiceType = "_homebase._tcp"
	mdnsDomain      = "local."
	mdnsMaxLabel    = 63
)

// startMDNS advertises the MQTT ingest endpoint so devices on the LAN can find it.
func (a *App) startMDNS(port int) error {
	if port <= 0 {
		return fmt.Errorf("invalid port %d", port)
	}

	a.stopMDNS()

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "homebase"
	}

	instance := sanitizeMDNSInstance(fmt.Sprintf("HomeBase (%s)", hostname))
	host := sanitizeMDNSHost(hostname)
	if !strings.Contains(host, ".") {
		host += ".local"
	}

	txt := []string{
		fmt.Sprintf("mqtt_port=%d", port),
		fmt.Sprintf("http_port=%d", a.cfg.HTTPPort),
		"ping_topic=" + pingTopicPrefix + "{userId}",
		"proto=v1",
		"host=" + host,
	}

	server, err := zeroconf.Register(instance, mdnsServiceType, mdnsDomain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("register mdns service: %w", err)
	}

	a.mdns = server
	a.logger.Info("mDNS advertisement started", "instance", instance, "port", port)
	return nil
}

func (a *App) stopMDNS() {
	if a.mdns == nil {
		return
	}
	a.mdns.Shutdown()
	a.mdns = nil
	a.logger.Info("mDNS advertisement stopped")
}

func sanitizeMDNSInstance(name string) string {
	cleaned := strings.NewReplacer("\n", " ", "\r", " ", ".", " ", "_", " ").Replace(strings.TrimSpace(name))
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		cleaned = "HomeBase"
	}
	return truncateRunes(cleaned, mdnsMaxLabel)
}

func sanitizeMDNSHost(name string) string {
	cleaned := strings.NewReplacer(" ", "-", "_", "-", "\n", "", "\r", "").Replace(strings.ToLower(strings.TrimSpace(name)))
	if cleaned == "" {
		cleaned = "homebase"
	}
	return truncateRunes(cleaned, mdnsMaxLabel)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}
