package detect

// #region detector
// Detector is the external boundary of the pipeline: something that
// classifies a target and reports threshold crossings. The metric scanner
// itself lives outside this module; circuits only depend on this interface.
type Detector interface {
	Scan(target string) ([]Event, error)
}

// Func adapts a plain function to the Detector interface.
type Func func(target string) ([]Event, error)

// Scan calls f.
func (f Func) Scan(target string) ([]Event, error) {
	return f(target)
}

// #endregion detector

// #region static
// Static is a Detector that returns a fixed event list for any target.
// Used in tests and demos where the scan result is known up front.
type Static []Event

// Scan returns the configured events unchanged.
func (s Static) Scan(string) ([]Event, error) {
	return []Event(s), nil
}

// #endregion static
