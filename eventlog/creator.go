package eventlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
)

// Creator writes job event log. Output file '<label>-<job>-events.csv' is
// CSV of 'type,address,data,timestamp' records where type and timestamp
// are decimal, address is a Neo address and data is base64-encoded.
//
// Use ReadLog or IterateLogs to access existing logs.
type Creator struct {
	f   *os.File
	csv *csv.Writer
}

// NewCreator returns Creator which writes the log into given directory. The
// log is identified by specified ID. Resulting Creator should be closed when
// finished working with it.
//
// NewCreator fails if log with provided ID already exists.
func NewCreator(dir string, id ID) (*Creator, error) {
	p := logPath(dir, id)
	if err := checkFileNotExists(p); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open file with events: %w", err)
	}

	return &Creator{f: f, csv: csv.NewWriter(f)}, nil
}

// Write appends the event to the log. Events must be written in ledger
// order.
func (x *Creator) Write(ev event.JobEvent) error {
	err := x.csv.Write([]string{
		strconv.FormatUint(uint64(ev.Type), 10),
		address.Uint160ToString(ev.Address),
		_encoding.EncodeToString(ev.Data),
		strconv.FormatUint(ev.Timestamp, 10),
	})
	if err != nil {
		return fmt.Errorf("write event as CSV data: %w", err)
	}

	return nil
}

// Flush flushes accumulated events to the file system.
func (x *Creator) Flush() error {
	x.csv.Flush()

	err := x.csv.Error()
	if err != nil {
		return fmt.Errorf("flush CSV data: %w", err)
	}

	return nil
}

// Close releases underlying resources of the Creator and makes it unusable.
func (x *Creator) Close() {
	_ = x.f.Close()
}
