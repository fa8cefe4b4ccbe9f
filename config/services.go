package config

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API, the live socket hub, and its notification relay.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeMergeWorker runs the single batch merge worker.
	ServiceModeMergeWorker ServiceMode = "merge-worker"
	// ServiceModeFileMover runs the file mover.
	ServiceModeFileMover ServiceMode = "file-mover"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeMergeWorker,
		ServiceModeFileMover,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeMergeWorker, ServiceModeFileMover:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, merge-worker, file-mover)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ValidateServiceModes rejects combinations that cannot work. The merge queue
// is an in-process channel fed by the HTTP submit handler, so the merge worker
// must run in the same process as the HTTP server.
func ValidateServiceModes(services map[ServiceMode]bool) error {
	if services[ServiceModeMergeWorker] && !services[ServiceModeHTTP] {
		return errors.New("merge-worker must run in the same process as http")
	}
	return nil
}
