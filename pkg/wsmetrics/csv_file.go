// Package wsmetrics counts WebSocket connection lifecycle events to CSV
// files. It is a thin layer, suitable for single-process deployments
// that don't already have a metrics backend wired in.
package wsmetrics

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultConnectionsFile = "ws_connections.csv"
	DefaultClosuresFile    = "ws_closures.csv"

	filePerms = 0o600
)

var (
	muConn   sync.Mutex
	muClose  sync.Mutex
)

// CountConnection records a completed handshake: the connection's role
// ("client" or "server"), the remote address, and the negotiated
// subprotocol (empty if none).
func CountConnection(l zerolog.Logger, t time.Time, role, remoteAddr, subprotocol string) {
	muConn.Lock()
	defer muConn.Unlock()

	record := []string{t.Format(time.RFC3339), role, remoteAddr, subprotocol}
	writeLineToFile(&l, DefaultConnectionsFile, record)
}

// CountClosure records a finished connection: the close code each side
// sent (0 if the connection was simply dropped), and whether it was
// initiated locally.
func CountClosure(l zerolog.Logger, t time.Time, localCode, peerCode uint16, initiatedLocally bool) {
	muClose.Lock()
	defer muClose.Unlock()

	record := []string{
		t.Format(time.RFC3339),
		strconv.Itoa(int(localCode)),
		strconv.Itoa(int(peerCode)),
		strconv.FormatBool(initiatedLocally),
	}
	writeLineToFile(&l, DefaultClosuresFile, record)
}

func writeLineToFile(l *zerolog.Logger, filename string, record []string) {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerms) //gosec:disable G304 // fixed, package-relative path.
	if err != nil {
		if l != nil {
			l.Error().Err(err).Msg("failed to open metrics file")
		}
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(record); err != nil {
		if l != nil {
			l.Error().Err(err).Msg("failed to write metrics file")
		}
		return
	}
	w.Flush()
}
