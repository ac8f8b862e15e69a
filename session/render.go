package session

import (
	"fmt"
	"strings"

	"github.com/hyakvnc/hyakvnc/pkg/models"
)

// Instructions renders the viewer-side connection steps for a reachable
// session. The forward on the login node already exists; what remains is the
// hop from the user's workstation to the login node and the viewer itself.
func Instructions(sess *models.Session, loginHost string) string {
	path := sess.ConnectionPath
	if path == nil {
		return ""
	}

	var b strings.Builder
	port := path.LocalPort
	fmt.Fprintf(&b, "Session %s (job %s) is listening on %s\n", sess.Name, sess.JobID, path.LocalAddr())
	fmt.Fprintf(&b, "VNC endpoint: %s on %s\n\n", sess.Endpoint.String(), sess.Allocation.Node())

	fmt.Fprintf(&b, "From your workstation, forward the port and open a VNC viewer:\n\n")
	fmt.Fprintf(&b, "  Linux / macOS:\n")
	fmt.Fprintf(&b, "    ssh -N -f -L %d:127.0.0.1:%d %s\n", port, port, loginHost)
	fmt.Fprintf(&b, "    vncviewer 127.0.0.1:%d\n\n", port)
	fmt.Fprintf(&b, "  macOS (built-in Screen Sharing):\n")
	fmt.Fprintf(&b, "    open vnc://127.0.0.1:%d\n\n", port)
	fmt.Fprintf(&b, "  Windows (PowerShell):\n")
	fmt.Fprintf(&b, "    ssh -N -L %d:127.0.0.1:%d %s\n", port, port, loginHost)
	fmt.Fprintf(&b, "    then connect your VNC viewer to 127.0.0.1:%d\n", port)
	return b.String()
}
