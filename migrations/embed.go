// Package migrations embeds the SQL migration files for the warehouse
// movement schema and exposes them through golang-migrate's iofs source,
// so the migrator binary ships as a single static artifact with no
// external migration directory to deploy alongside it.
package migrations

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
)

//go:embed *.sql
var files embed.FS

// FS is the embedded migration source, ready to be wrapped by
// golang-migrate's source/iofs driver.
var FS fs.FS = files

// filenameRegexp matches golang-migrate's expected filename shape:
// 001_name.up.sql or 001_name.down.sql.
var filenameRegexp = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

// Info describes one parsed migration file.
type Info struct {
	Sequence int
	Name     string
	Direction string
	Filename  string
	Checksum  string
}

// Validate checks that the embedded migrations are well-formed: every
// filename matches the expected shape, every "up" has a matching "down",
// and sequence numbers have no gaps. Intended to run once at startup so a
// packaging mistake fails fast instead of surfacing as a confusing
// golang-migrate error mid-deploy.
func Validate() error {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		return fmt.Errorf("reading embedded migrations: %w", err)
	}

	byDirection := map[string]map[int]Info{"up": {}, "down": {}}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := parseFilename(entry.Name())
		if err != nil {
			return err
		}

		info.Checksum, err = checksum(entry.Name())
		if err != nil {
			return err
		}

		byDirection[info.Direction][info.Sequence] = info
	}

	sequences := make([]int, 0, len(byDirection["up"]))
	for seq := range byDirection["up"] {
		sequences = append(sequences, seq)
	}

	sort.Ints(sequences)

	for i, seq := range sequences {
		if _, ok := byDirection["down"][seq]; !ok {
			return fmt.Errorf("migration %d has an up file but no matching down file", seq)
		}

		if i > 0 && seq != sequences[i-1]+1 {
			return fmt.Errorf("migration sequence gap between %d and %d", sequences[i-1], seq)
		}
	}

	return nil
}

func parseFilename(name string) (Info, error) {
	matches := filenameRegexp.FindStringSubmatch(name)
	if matches == nil {
		return Info{}, fmt.Errorf("migration filename %q does not match NNN_name.(up|down).sql", name)
	}

	seq, err := strconv.Atoi(matches[1])
	if err != nil {
		return Info{}, fmt.Errorf("migration filename %q has a non-numeric sequence: %w", name, err)
	}

	return Info{Sequence: seq, Name: matches[2], Direction: matches[3], Filename: name}, nil
}

func checksum(name string) (string, error) {
	data, err := fs.ReadFile(FS, name)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", name, err)
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}
