package module

import "crewdesk/internal/services/archiver/domain"

// Ports defines archiver module ports exposed via the registry
type Ports struct {
	Worker  domain.WorkerPort
	Drainer domain.DrainerPort
}
