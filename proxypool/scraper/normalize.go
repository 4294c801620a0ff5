package scraper

import (
	"strings"

	"proxy_harvester/proxypool/model"
)

// Normalize trims raw lines, drops empty ones and those without a host:port separator,
// and removes duplicates keeping the first occurrence.
func Normalize(protocol model.Protocol, lines []string) []model.Candidate {
	seen := make(map[string]struct{}, len(lines))
	candidates := make([]model.Candidate, 0, len(lines))
	for _, line := range lines {
		addr := strings.TrimSpace(line)
		if addr == "" || !strings.Contains(addr, ":") {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		candidates = append(candidates, model.Candidate{Protocol: protocol, Address: addr})
	}
	return candidates
}
