package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "clockify_sync"

// Registry holds every collector of a sync run. It is separate from the
// default registry so exported files carry run metrics only.
var Registry = prometheus.NewRegistry()
