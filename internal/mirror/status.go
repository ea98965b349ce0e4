package mirror

import "fmt"

// Status is an immutable snapshot of the mirror server state.
type Status struct {
	Running   bool   `json:"running"`
	URL       string `json:"url,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	Port      int    `json:"port,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StoppedStatus returns a stopped status carrying an optional error.
func StoppedStatus(errMsg string) Status {
	return Status{Error: errMsg}
}

// RunningStatus returns the status of a server reachable at ip:port.
func RunningStatus(ip string, port int) Status {
	return Status{
		Running:   true,
		URL:       fmt.Sprintf("http://%s:%d", ip, port),
		IPAddress: ip,
		Port:      port,
	}
}

// Failed reports whether the status carries an error.
func (s Status) Failed() bool {
	return !s.Running && s.Error != ""
}

func (s Status) String() string {
	switch {
	case s.Running:
		return "running at " + s.URL
	case s.Error != "":
		return "stopped: " + s.Error
	default:
		return "stopped"
	}
}
