package types

import "fmt"

// ConfigError reports invalid binning or run parameters, found before any mesh traversal
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Param, e.Reason)
}

// DomainError reports a value outside the valid domain of the binning scheme
type DomainError struct {
	Element int // Stable element ID, -1 when not known
	Value   float64
	Reason  string
}

func (e *DomainError) Error() string {
	if e.Element < 0 {
		return fmt.Sprintf("domain error: value %g: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("domain error: element %d value %g: %s", e.Element, e.Value, e.Reason)
}

// TopologyError reports a region or element that cannot be turned into geometry
type TopologyError struct {
	Region  int // Region ID, 0 when the error concerns a single element
	Element int // Stable element ID, -1 when the error concerns a whole region
	Reason  string
}

func (e *TopologyError) Error() string {
	switch {
	case e.Region > 0:
		return fmt.Sprintf("topology error: region %d: %s", e.Region, e.Reason)
	case e.Element >= 0:
		return fmt.Sprintf("topology error: element %d: %s", e.Element, e.Reason)
	}
	return "topology error: " + e.Reason
}

// SinkWriteError reports a write rejected by the geometry sink
type SinkWriteError struct {
	Op  string
	Err error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("geometry sink: %s: %v", e.Op, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }
