package navigation

// WaitStrategy is a page-load completion criterion. Strategies form a
// closed, ordered set tried strictest first.
type WaitStrategy int

const (
	WaitNetworkIdle WaitStrategy = iota
	WaitLoad
	WaitDOMContentLoaded
	WaitCommit
)

func (s WaitStrategy) String() string {
	switch s {
	case WaitNetworkIdle:
		return "networkidle"
	case WaitLoad:
		return "load"
	case WaitDOMContentLoaded:
		return "domcontentloaded"
	case WaitCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// Strategies returns the fallback order.
func Strategies() []WaitStrategy {
	return []WaitStrategy{WaitNetworkIdle, WaitLoad, WaitDOMContentLoaded, WaitCommit}
}
