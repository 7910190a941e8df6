package eventlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/jobmarket/event"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
)

// IterateLogs iterates over all logs written by the Creator in the specified
// directory, and passes ID and Reader of each log into f.
func IterateLogs(dir string, f func(ID, *Reader)) error {
	var id ID

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, e error) error {
		if errors.Is(e, fs.ErrNotExist) {
			return nil
		}
		if e != nil {
			return e
		}

		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()

		err := id.decodeFileName(name)
		if err != nil {
			// foreign file
			return nil
		}

		r, err := ReadLog(dir, id)
		if err != nil {
			return fmt.Errorf("read log ('%s'): %w", name, err)
		}

		f(id, r)

		return nil
	})
}

// Reader reads events collected in the superior log.
type Reader struct {
	job    uint256.Int
	events []event.JobEvent
}

// ReadLog reads log with provided ID from the directory.
func ReadLog(dir string, id ID) (*Reader, error) {
	f, err := os.Open(logPath(dir, id))
	if err != nil {
		return nil, fmt.Errorf("open file with events: %w", err)
	}
	defer f.Close()

	r := &Reader{job: id.Job}
	if err := r.fromStream(f); err != nil {
		return nil, err
	}
	return r, nil
}

func (x *Reader) fromStream(rEvents io.Reader) error {
	var (
		rec []string
		err error
	)

	_csv := csv.NewReader(rEvents)
	_csv.FieldsPerRecord = csvFields
	_csv.ReuseRecord = true

	for line := 1; ; line++ {
		rec, err = _csv.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read next CSV record: %w", err)
		}

		// out-of-range safety guaranteed by csv settings
		var ev event.JobEvent

		typ, err := strconv.ParseUint(rec[0], 10, 8)
		if err != nil {
			return fmt.Errorf("record %d: decode event type: %w", line, err)
		}
		ev.Type = event.Type(typ)

		ev.Address, err = address.StringToUint160(rec[1])
		if err != nil {
			return fmt.Errorf("record %d: decode address: %w", line, err)
		}

		ev.Data, err = _encoding.DecodeString(rec[2])
		if err != nil {
			return fmt.Errorf("record %d: decode data: %w", line, err)
		}

		ev.Timestamp, err = strconv.ParseUint(rec[3], 10, 64)
		if err != nil {
			return fmt.Errorf("record %d: decode timestamp: %w", line, err)
		}

		x.events = append(x.events, ev)
	}
}

// All returns all events of the log.
func (x *Reader) All() []event.JobEvent {
	return x.events
}

// EventsCount returns the number of events of the job.
func (x *Reader) EventsCount(jobID *uint256.Int) (uint64, error) {
	if !jobID.Eq(&x.job) {
		return 0, fmt.Errorf("log of job %s has no events of job %s", x.job.Dec(), jobID.Dec())
	}
	return uint64(len(x.events)), nil
}

// Events returns at most limit events of the job starting from the given
// index.
func (x *Reader) Events(jobID *uint256.Int, from, limit uint64) ([]event.JobEvent, error) {
	n, err := x.EventsCount(jobID)
	if err != nil {
		return nil, err
	}
	if from >= n {
		return nil, nil
	}
	return x.events[from:min(from+limit, n)], nil
}
