package capture

// retryTransient invokes locate up to attempts times, retrying only when
// shouldRetry classifies the error as transient. Any other error is
// returned immediately.
func retryTransient(attempts int, shouldRetry func(error) bool, locate func() (Element, error)) (Element, error) {
	var el Element
	var err error
	for i := 0; i < attempts; i++ {
		el, err = locate()
		if err == nil {
			return el, nil
		}
		if !shouldRetry(err) {
			return nil, err
		}
	}
	return nil, err
}
