// Probe registry adapted from the teacher's control/debug.go, rewired
// to dump Stats and WarnLog on demand instead of arbitrary named
// probes.
package stats

// Probes holds the Registry and WarnLog whose state is dumped when a
// diagnostic snapshot is requested; DumpState returns them under the
// fixed keys "stats" and "warnings", which the SIGUSR1 handler logs.
type Probes struct {
	registry *Registry
	warnLog  *WarnLog
}

// NewProbes builds a Probes bound to the given Registry/WarnLog.
func NewProbes(registry *Registry, warnLog *WarnLog) *Probes {
	return &Probes{registry: registry, warnLog: warnLog}
}

// DumpState returns the current stats brief line plus recent warnings,
// the content printed on SIGUSR1 (original_source's handle_signals
// prints get_stats().brief_str(); we add the warning history the
// original never tracked).
func (p *Probes) DumpState() map[string]any {
	out := map[string]any{
		"stats": p.registry.Get().String(),
	}
	if p.warnLog != nil {
		out["warnings"] = p.warnLog.Recent()
	}
	return out
}
