package metrics

import (
	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

type ExportOptions struct {
	// Textfile is a node_exporter textfile-collector path.
	Textfile       string
	PushgatewayURL string
	Job            string
	// Grouping labels attached to the Pushgateway group, e.g. workspace.
	Grouping map[string]string
}

// Export writes the gathered run metrics to every configured destination.
// With no destination configured it is a no-op.
func Export(g prometheus.Gatherer, opts ExportOptions) error {
	if g == nil {
		g = Registry
	}
	if opts.Textfile != "" {
		if err := prometheus.WriteToTextfile(opts.Textfile, g); err != nil {
			return errors.Wrapf(err, "write metrics textfile %s", opts.Textfile)
		}
	}
	if opts.PushgatewayURL != "" {
		job := opts.Job
		if job == "" {
			job = Namespace
		}
		p := push.New(opts.PushgatewayURL, job).Gatherer(g)
		for k, v := range opts.Grouping {
			p = p.Grouping(k, v)
		}
		if err := p.Push(); err != nil {
			return errors.Wrap(err, "push metrics")
		}
	}
	return nil
}
