package web

const (
	SpinnerColor = "#0000ff"
	SpinnerSize  = 150
)

// Indicator is the loading spinner. It is visible only while Loading is set.
type Indicator struct {
	Color   string
	Size    int
	Label   string
	Loading bool
}

func NewIndicator(loading bool) Indicator {
	return Indicator{
		Color:   SpinnerColor,
		Size:    SpinnerSize,
		Label:   "Loading Spinner",
		Loading: loading,
	}
}
