package eventlog

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/holiman/uint256"
)

// ID is a unique identifier of the event log.
type ID struct {
	// Label of the log source (e.g. testnet, mainnet).
	Label string
	// Job the events belong to.
	Job uint256.Int
}

// String returns hyphen-separated ID fields.
func (x ID) String() string {
	return x.Label + sep + x.Job.Dec()
}

// decodes ID fields from the file name.
func (x *ID) decodeFileName(s string) error {
	if !strings.HasSuffix(s, sep+fileSuffix) {
		return fmt.Errorf("missing '%s' suffix", fileSuffix)
	}
	s = strings.TrimSuffix(s, sep+fileSuffix)

	i := strings.LastIndex(s, sep)
	if i <= 0 {
		return fmt.Errorf("expected '%s'-separated label and job ID", sep)
	}

	job, err := uint256.FromDecimal(s[i+1:])
	if err != nil {
		return fmt.Errorf("decode job ID from '%s': %w", s[i+1:], err)
	}

	x.Label = s[:i]
	x.Job = *job

	return nil
}

// global encoding of binary values.
var _encoding = base64.StdEncoding

const (
	// word separator used in log file naming
	sep = "-"
	// suffix of file with events
	fileSuffix = "events.csv"
	// number of CSV fields: type, address, data, timestamp
	csvFields = 4
)

func logPath(dir string, id ID) string {
	return filepath.Join(dir, id.String()+sep+fileSuffix)
}

// checkFileNotExists checks that there is no file at the specified path.
func checkFileNotExists(p string) error {
	_, err := os.Stat(p)
	if !os.IsNotExist(err) {
		if err == nil {
			err = os.ErrExist
		}
		return fmt.Errorf("file '%s' absence check failed: %w", p, err)
	}
	return nil
}
